package model

// UserHealthProfile is the health section of a user document. It is owned by
// the profile subsystem and read-only here. Every field is optional.
type UserHealthProfile struct {
	Age                  *int                  `json:"age,omitempty"`
	Gender               *string               `json:"gender,omitempty"`
	PhysicalMetrics      *PhysicalMetrics      `json:"physicalMetrics,omitempty"`
	Lifestyle            *Lifestyle            `json:"lifestyle,omitempty"`
	DietaryProfile       *DietaryProfile       `json:"dietaryProfile,omitempty"`
	MedicalHistory       *MedicalHistory       `json:"healthProfile,omitempty"`
	EnvironmentalFactors *EnvironmentalFactors `json:"environmentalFactors,omitempty"`
	RiskFactors          *RiskFactors          `json:"riskFactors,omitempty"`
}

type PhysicalMetrics struct {
	HeightCM             *float64 `json:"height,omitempty"`
	WeightKG             *float64 `json:"weight,omitempty"`
	BMI                  *float64 `json:"bmi,omitempty"`
	WaistCircumferenceCM *float64 `json:"waistCircumference,omitempty"`
}

type Lifestyle struct {
	ActivityLevel *string  `json:"activityLevel,omitempty"`
	SleepHours    *float64 `json:"sleepHours,omitempty"`
}

type DietaryProfile struct {
	Preferences      []string `json:"preferences,omitempty"`
	Allergies        []string `json:"allergies,omitempty"`
	DailyWaterIntake *float64 `json:"dailyWaterIntake,omitempty"`
	MealFrequency    *int     `json:"mealFrequency,omitempty"`
}

type MedicalHistory struct {
	CurrentConditions []string `json:"currentConditions,omitempty"`
	FamilyHistory     []string `json:"familyHistory,omitempty"`
	Medications       []string `json:"medications,omitempty"`
	BloodType         *string  `json:"bloodType,omitempty"`
}

type EnvironmentalFactors struct {
	PollutionExposure *string `json:"pollutionExposure,omitempty"`
	OccupationType    *string `json:"occupationType,omitempty"`
}

type RiskFactors struct {
	Addictions  []string `json:"addictions,omitempty"`
	StressLevel *string  `json:"stressLevel,omitempty"`
}

// ReportedConditions returns the conditions the user declared as current.
func (p UserHealthProfile) ReportedConditions() []string {
	if p.MedicalHistory == nil {
		return nil
	}
	return p.MedicalHistory.CurrentConditions
}

// FeatureVector is the flat, fully defaulted input of the inference
// procedure. It is built per invocation and never stored.
type FeatureVector map[string]any
