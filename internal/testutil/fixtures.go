// Package testutil provides shared fixtures for package tests.
package testutil

import "github.com/jonathan/cv-generator/internal/types"

// ValidRaw returns a raw submission that passes validation
func ValidRaw() types.RawCVData {
	return types.RawCVData{
		PersonalInfo: map[string]string{
			types.FieldFullName:         "Jane A. Doe",
			types.FieldHighestEducation: "B.Tech",
			types.FieldCity:             "Pune",
			types.FieldPhone:            "+91 98765 43210",
			types.FieldEmail:            "jane.doe@example.com",
		},
		Education: []map[string]string{
			{
				types.FieldQualification: "B.Tech",
				types.FieldStream:        "Computer Science",
				types.FieldInstitute:     "Institute of Technology",
				types.FieldYear:          "2024",
				types.FieldCGPA:          "8.7",
			},
		},
		Achievements: []map[string]string{
			{types.FieldDescription: "Won the regional hackathon", types.FieldYear: "2023"},
		},
		Internships: []types.RawEntry{
			{
				Fields: map[string]string{
					types.FieldCompany:  "Acme Corp",
					types.FieldRole:     "Backend Intern",
					types.FieldDuration: "May 2023 - Jul 2023",
				},
				Points: []string{"Built a billing API", "Cut p99 latency by 30%"},
			},
		},
		Projects: []types.RawEntry{
			{
				Fields: map[string]string{
					types.FieldTitle:    "Pathfinder",
					types.FieldType:     "Personal",
					types.FieldDuration: "2023",
					types.FieldRepoLink: "https://example.com/jane/pathfinder",
				},
				Points: []string{"Route planner in Go"},
			},
		},
		Positions: []types.RawEntry{
			{
				Fields: map[string]string{
					types.FieldClub:     "Coding Club",
					types.FieldRole:     "Lead",
					types.FieldDuration: "2022 - 2023",
				},
				Points: []string{"Ran weekly contests"},
			},
		},
		Extracurricular: []string{"Chess", "Marathon running"},
		TechnicalSkills: []string{"Go", "PostgreSQL", "Docker"},
	}
}

// ValidCVData returns validated data built from ValidRaw
func ValidCVData() *types.CVData {
	data, err := types.NewCVData(ValidRaw())
	if err != nil {
		panic(err)
	}
	return data
}
