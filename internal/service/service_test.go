package service

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/jonathan/cv-generator/internal/parsing"
	"github.com/jonathan/cv-generator/internal/rendering"
	"github.com/jonathan/cv-generator/internal/storage"
	"github.com/jonathan/cv-generator/internal/testutil"
	"github.com/jonathan/cv-generator/internal/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// countingRasterizer returns a fixed PDF and counts calls. When gate is
// non-nil each call signals entered and waits for gate to close.
type countingRasterizer struct {
	calls   atomic.Int32
	err     error
	gate    chan struct{}
	entered chan struct{}
}

func (r *countingRasterizer) Mode() rendering.Mode { return rendering.ModePrint }

func (r *countingRasterizer) Rasterize(_ context.Context, markup string) ([]byte, error) {
	r.calls.Add(1)
	if r.gate != nil {
		select {
		case r.entered <- struct{}{}:
		default:
		}
		<-r.gate
	}
	if r.err != nil {
		return nil, r.err
	}
	if !strings.Contains(markup, "@page") {
		return nil, &rendering.RasterizationError{Message: "expected print markup"}
	}
	return []byte("%PDF-1.4 test"), nil
}

// failingRenderer fails every render
type failingRenderer struct{}

func (failingRenderer) Render(string, rendering.Mode, *types.CVData) (string, error) {
	return "", &rendering.RenderError{Message: "template exploded"}
}

func (failingRenderer) Rasterize(context.Context, *types.CVData) (*rendering.Document, error) {
	return nil, &rendering.RenderError{Message: "template exploded"}
}

type fixture struct {
	svc        *CVService
	store      *storage.Store
	rasterizer *countingRasterizer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	backend, err := storage.NewFSBackend(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	store := storage.New(backend)

	engine, err := rendering.NewTemplateEngine("")
	require.NoError(t, err)
	r := &countingRasterizer{}
	svc := New(store, rendering.NewCoordinator(engine, r))
	return &fixture{svc: svc, store: store, rasterizer: r}
}

func validForm(shape parsing.Shape) *parsing.Form {
	return parsing.Export(testutil.ValidCVData(), shape)
}

func TestSubmitForm_StoresCanonicalData(t *testing.T) {
	for _, shape := range []parsing.Shape{parsing.ShapeLegacy, parsing.ShapeDynamic} {
		t.Run(shape.String(), func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()

			id, err := f.svc.SubmitForm(ctx, validForm(shape))
			require.NoError(t, err)
			assert.True(t, storage.ValidID(id))

			doc, err := f.svc.GetDocument(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, *testutil.ValidCVData(), doc.Data)
			assert.Equal(t, doc.Metadata.CreatedAt, doc.Metadata.LastModified)
		})
	}
}

func TestSubmitForm_BulletsFilteredInOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	form := validForm(parsing.ShapeDynamic)
	form.Del("internships[0][points][]")
	form.Add("internships[0][points][]", "Did X")
	form.Add("internships[0][points][]", "")
	form.Add("internships[0][points][]", "Did Y")

	id, err := f.svc.SubmitForm(ctx, form)
	require.NoError(t, err)

	doc, err := f.svc.GetDocument(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"Did X", "Did Y"}, doc.Data.Internships[0].Points)
}

func TestSubmitForm_RendersMarkupArtifacts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.svc.SubmitForm(ctx, validForm(parsing.ShapeDynamic))
	require.NoError(t, err)

	screen, ok, err := f.store.GetArtifact(ctx, id, storage.ArtifactScreen)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, string(screen), "Jane A. Doe")

	display, ok, err := f.store.GetArtifact(ctx, id, storage.ArtifactDisplay)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, string(display), `download="jane_a_doe.pdf"`)

	_, ok, err = f.store.GetArtifact(ctx, id, storage.ArtifactPDF)
	require.NoError(t, err)
	assert.False(t, ok, "PDFs are rasterized on demand")
	assert.Zero(t, f.rasterizer.calls.Load())
}

func TestSubmitForm_Invalid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	form := validForm(parsing.ShapeDynamic)
	form.Set("email", "not-an-email")
	form.Del("technical_skills[]")
	form.Add("technical_skills[]", " ")

	_, err := f.svc.SubmitForm(ctx, form)
	var verr *types.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields(), "personal_info.email")
	assert.Contains(t, verr.Fields(), "technical_skills")

	list, err := f.svc.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSubmitForm_RenderFailureIsNotFatal(t *testing.T) {
	backend, err := storage.NewFSBackend(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	store := storage.New(backend)
	svc := New(store, failingRenderer{})
	ctx := context.Background()

	id, err := svc.SubmitForm(ctx, validForm(parsing.ShapeLegacy))
	require.NoError(t, err)
	assert.True(t, svc.Exists(ctx, id))

	_, err = svc.GetRenderedMarkup(ctx, id, rendering.ModeScreen)
	var renderErr *rendering.RenderError
	assert.ErrorAs(t, err, &renderErr)
}

func TestGetRenderedMarkup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// generated straight through the store, so nothing is cached yet
	id, err := f.store.Generate(ctx, testutil.ValidCVData())
	require.NoError(t, err)

	display, err := f.svc.GetRenderedMarkup(ctx, id, rendering.ModeDisplay)
	require.NoError(t, err)
	assert.Contains(t, display, `href="/cv/`+id+`/pdf"`)

	cached, ok, err := f.store.GetArtifact(ctx, id, storage.ArtifactDisplay)
	require.NoError(t, err)
	require.True(t, ok, "display markup is cached after first render")
	assert.Equal(t, display, string(cached))

	printed, err := f.svc.GetRenderedMarkup(ctx, id, rendering.ModePrint)
	require.NoError(t, err)
	assert.Contains(t, printed, "@page")

	tex, err := f.svc.GetRenderedMarkup(ctx, id, rendering.ModeLaTeX)
	require.NoError(t, err)
	assert.Contains(t, tex, `\documentclass`)

	_, err = f.svc.GetRenderedMarkup(ctx, "00000000-0000-4000-8000-000000000000", rendering.ModeScreen)
	var nf *storage.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestGetRasterizedDocument_Caches(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.svc.SubmitForm(ctx, validForm(parsing.ShapeDynamic))
	require.NoError(t, err)

	doc, err := f.svc.GetRasterizedDocument(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "jane_a_doe.pdf", doc.Filename)
	assert.Equal(t, "application/pdf", doc.ContentType)
	assert.Equal(t, []byte("%PDF-1.4 test"), doc.Bytes)

	again, err := f.svc.GetRasterizedDocument(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, doc, again)
	assert.Equal(t, int32(1), f.rasterizer.calls.Load())
}

func TestGetRasterizedDocument_ConcurrentRequestsShareOneRun(t *testing.T) {
	f := newFixture(t)
	f.rasterizer.gate = make(chan struct{})
	f.rasterizer.entered = make(chan struct{}, 1)
	ctx := context.Background()

	id, err := f.store.Generate(ctx, testutil.ValidCVData())
	require.NoError(t, err)

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.svc.GetRasterizedDocument(ctx, id)
		}()
	}

	<-f.rasterizer.entered
	time.Sleep(50 * time.Millisecond)
	close(f.rasterizer.gate)
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Less(t, f.rasterizer.calls.Load(), int32(n))
}

func TestGetRasterizedDocument_Failure(t *testing.T) {
	f := newFixture(t)
	f.rasterizer.err = &rendering.RasterizationError{Message: "chrome crashed"}
	ctx := context.Background()

	id, err := f.store.Generate(ctx, testutil.ValidCVData())
	require.NoError(t, err)

	_, err = f.svc.GetRasterizedDocument(ctx, id)
	var rastErr *rendering.RasterizationError
	require.ErrorAs(t, err, &rastErr)

	_, ok, err := f.store.GetArtifact(ctx, id, storage.ArtifactPDF)
	require.NoError(t, err)
	assert.False(t, ok, "failed runs leave nothing behind")
}

func TestUpdateDocument(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.svc.SubmitForm(ctx, validForm(parsing.ShapeDynamic))
	require.NoError(t, err)
	_, err = f.svc.GetRasterizedDocument(ctx, id)
	require.NoError(t, err)
	before, err := f.svc.GetDocument(ctx, id)
	require.NoError(t, err)

	form := validForm(parsing.ShapeLegacy)
	form.Set("full_name", "Janet Doe")
	doc, err := f.svc.UpdateDocument(ctx, id, form)
	require.NoError(t, err)

	assert.Equal(t, id, doc.Metadata.CVID)
	assert.Equal(t, "Janet Doe", doc.Data.PersonalInfo.FullName)
	assert.True(t, doc.Metadata.CreatedAt.Equal(before.Metadata.CreatedAt))
	assert.False(t, doc.Metadata.LastModified.Before(before.Metadata.LastModified))

	_, ok, err := f.store.GetArtifact(ctx, id, storage.ArtifactPDF)
	require.NoError(t, err)
	assert.False(t, ok, "stale PDF dropped")

	screen, err := f.svc.GetRenderedMarkup(ctx, id, rendering.ModeScreen)
	require.NoError(t, err)
	assert.Contains(t, screen, "Janet Doe")

	pdf, err := f.svc.GetRasterizedDocument(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "janet_doe.pdf", pdf.Filename)
	assert.Equal(t, int32(2), f.rasterizer.calls.Load())
}

func TestUpdateDocument_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.UpdateDocument(ctx, "00000000-0000-4000-8000-000000000000", validForm(parsing.ShapeDynamic))
	var nf *storage.NotFoundError
	assert.ErrorAs(t, err, &nf)

	id, err := f.svc.SubmitForm(ctx, validForm(parsing.ShapeDynamic))
	require.NoError(t, err)

	bad := validForm(parsing.ShapeDynamic)
	bad.Del("full_name")
	_, err = f.svc.UpdateDocument(ctx, id, bad)
	var verr *types.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestDeleteDocument(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.svc.SubmitForm(ctx, validForm(parsing.ShapeDynamic))
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteDocument(ctx, id))
	assert.False(t, f.svc.Exists(ctx, id))

	var nf *storage.NotFoundError
	_, err = f.svc.GetDocument(ctx, id)
	assert.ErrorAs(t, err, &nf)
	assert.ErrorAs(t, f.svc.DeleteDocument(ctx, id), &nf)
}

func TestListDocuments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.SubmitForm(ctx, validForm(parsing.ShapeDynamic))
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	second, err := f.svc.SubmitForm(ctx, validForm(parsing.ShapeLegacy))
	require.NoError(t, err)

	list, err := f.svc.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second, list[0].CVID)
	assert.Equal(t, first, list[1].CVID)
	assert.Equal(t, "Jane A. Doe", list[0].Name)
}

func TestExportForm(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.svc.SubmitForm(ctx, validForm(parsing.ShapeDynamic))
	require.NoError(t, err)

	for _, shape := range []parsing.Shape{parsing.ShapeLegacy, parsing.ShapeDynamic} {
		form, err := f.svc.ExportForm(ctx, id, shape)
		require.NoError(t, err)

		got, err := parsing.Classify(form)
		require.NoError(t, err)
		assert.Equal(t, shape, got)

		data, err := parsing.Normalize(form)
		require.NoError(t, err)
		assert.Equal(t, *testutil.ValidCVData(), *data)
	}
}

func TestPreviewPDF(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	doc, err := f.svc.PreviewPDF(ctx, validForm(parsing.ShapeLegacy))
	require.NoError(t, err)
	assert.Equal(t, "jane_a_doe.pdf", doc.Filename)

	list, err := f.svc.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Empty(t, list, "preview stores nothing")

	_, err = f.svc.PreviewPDF(ctx, parsing.NewForm())
	var verr *types.ValidationError
	assert.ErrorAs(t, err, &verr)
}
