package service

import (
	"strings"

	"github.com/thenielthevis/capstone-project-sub006/internal/domain/model"
)

// Feature vector keys expected by the inference procedure.
const (
	FeatureAge                = "age"
	FeatureGender             = "gender"
	FeatureHeight             = "height"
	FeatureWeight             = "weight"
	FeatureBMI                = "bmi"
	FeatureWaistCircumference = "waist_circumference"
	FeatureActivityLevel      = "activity_level"
	FeatureSleepHours         = "sleep_hours"
	FeatureDietaryPreference  = "dietary_preference"
	FeatureAllergies          = "allergies"
	FeatureDailyWaterIntake   = "daily_water_intake"
	FeatureMealFrequency      = "meal_frequency"
	FeatureCurrentConditions  = "current_conditions"
	FeatureFamilyHistory      = "family_history"
	FeatureMedications        = "medications"
	FeatureBloodType          = "blood_type"
	FeaturePollutionExposure  = "pollution_exposure"
	FeatureOccupationType     = "occupation_type"
	FeatureAddiction          = "addiction"
	FeatureStressLevel        = "stress_level"
)

// Categorical sentinels used when the profile leaves a field unset.
const (
	DefaultActivityLevel     = "sedentary"
	DefaultStressLevel       = "low"
	DefaultPollutionExposure = "low"
	DefaultOccupationType    = "mixed"
	DefaultNone              = "none"
	DefaultBloodType         = "O+"
	DefaultGender            = "unknown"
	DefaultMealFrequency     = 3
)

// FeatureVectorBuilder maps a user profile onto the flat vector the
// inference procedure consumes. All knowledge about the model's expected
// inputs lives here.
type FeatureVectorBuilder struct{}

// NewFeatureVectorBuilder creates a new FeatureVectorBuilder.
func NewFeatureVectorBuilder() *FeatureVectorBuilder {
	return &FeatureVectorBuilder{}
}

// Build never fails. Every key is present in the result: numeric fields
// default to 0 and categorical fields to their sentinel.
func (b *FeatureVectorBuilder) Build(profile model.UserHealthProfile) model.FeatureVector {
	pm := valueOr(profile.PhysicalMetrics)
	ls := valueOr(profile.Lifestyle)
	dp := valueOr(profile.DietaryProfile)
	mh := valueOr(profile.MedicalHistory)
	ef := valueOr(profile.EnvironmentalFactors)
	rf := valueOr(profile.RiskFactors)

	age := 0.0
	if profile.Age != nil {
		age = float64(*profile.Age)
	}
	mealFrequency := float64(DefaultMealFrequency)
	if dp.MealFrequency != nil && *dp.MealFrequency > 0 {
		mealFrequency = float64(*dp.MealFrequency)
	}

	height := number(pm.HeightCM)
	weight := number(pm.WeightKG)

	return model.FeatureVector{
		FeatureAge:                age,
		FeatureGender:             category(profile.Gender, DefaultGender),
		FeatureHeight:             height,
		FeatureWeight:             weight,
		FeatureBMI:                bmi(pm.BMI, height, weight),
		FeatureWaistCircumference: number(pm.WaistCircumferenceCM),
		FeatureActivityLevel:      category(ls.ActivityLevel, DefaultActivityLevel),
		FeatureSleepHours:         number(ls.SleepHours),
		FeatureDietaryPreference:  list(dp.Preferences),
		FeatureAllergies:          list(dp.Allergies),
		FeatureDailyWaterIntake:   number(dp.DailyWaterIntake),
		FeatureMealFrequency:      mealFrequency,
		FeatureCurrentConditions:  list(mh.CurrentConditions),
		FeatureFamilyHistory:      list(mh.FamilyHistory),
		FeatureMedications:        list(mh.Medications),
		FeatureBloodType:          category(mh.BloodType, DefaultBloodType),
		FeaturePollutionExposure:  category(ef.PollutionExposure, DefaultPollutionExposure),
		FeatureOccupationType:     category(ef.OccupationType, DefaultOccupationType),
		FeatureAddiction:          list(rf.Addictions),
		FeatureStressLevel:        category(rf.StressLevel, DefaultStressLevel),
	}
}

func valueOr[T any](p *T) T {
	if p == nil {
		var zero T
		return zero
	}
	return *p
}

func number(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func category(v *string, def string) string {
	if v == nil {
		return def
	}
	if s := strings.TrimSpace(*v); s != "" {
		return s
	}
	return def
}

func list(values []string) string {
	kept := make([]string, 0, len(values))
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		return DefaultNone
	}
	return strings.Join(kept, ",")
}

// bmi prefers the stored value and otherwise derives it from height in
// centimetres and weight in kilograms.
func bmi(stored *float64, heightCM, weightKG float64) float64 {
	if stored != nil && *stored > 0 {
		return *stored
	}
	if heightCM <= 0 || weightKG <= 0 {
		return 0
	}
	m := heightCM / 100
	return weightKG / (m * m)
}
