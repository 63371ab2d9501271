package testutil

import (
	"github.com/google/uuid"

	"github.com/thenielthevis/capstone-project-sub006/internal/domain/model"
)

// Fixed UUIDs for deterministic testing
var (
	TestUserID1 = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	TestUserID2 = uuid.MustParse("00000000-0000-0000-0000-000000000002")
)

// SampleProfile returns a partially filled health profile with one declared
// condition.
func SampleProfile() model.UserHealthProfile {
	age := 47
	gender := "female"
	height, weight := 162.0, 70.5
	stress := "high"
	return model.UserHealthProfile{
		Age:    &age,
		Gender: &gender,
		PhysicalMetrics: &model.PhysicalMetrics{
			HeightCM: &height,
			WeightKG: &weight,
		},
		MedicalHistory: &model.MedicalHistory{
			CurrentConditions: []string{"Asthma"},
			FamilyHistory:     []string{"Diabetes", "Hypertension"},
		},
		RiskFactors: &model.RiskFactors{StressLevel: &stress},
	}
}
