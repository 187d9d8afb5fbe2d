package application

import (
	"fmt"
	"slices"
	"sort"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/cloudecole/go-bulletin/internal/domain"
	"github.com/cloudecole/go-bulletin/internal/engine"
)

// ValidateUnitParameters validates the parameters for a specific unit type,
// ensuring only known fields are present and values meet domain constraints.
// ValidateUnitParameters returns an error if parameter decoding fails
// or if any validation rule is violated.
func ValidateUnitParameters(unitType string, params yaml.Node) error {
	paramMap := map[string]any{}
	if params.Kind != 0 {
		if err := params.Decode(&paramMap); err != nil {
			return fmt.Errorf("failed to decode parameters: %w", err)
		}
	}

	switch unitType {
	case "aggregation", "student_ranks", "class_ranks":
		return validatePolicyParams(unitType, paramMap)
	case "palmares":
		return validatePalmaresParams(paramMap)
	case "subject_groups":
		return validateSubjectGroupsParams(paramMap)
	case "repechage":
		return validateRepechageParams(paramMap)
	case "custom":
		// Custom units have flexible validation
		return nil
	default:
		return fmt.Errorf("unknown unit type: %s", unitType)
	}
}

// checkKnownKeys rejects parameters a unit type does not understand.
func checkKnownKeys(unitType string, params map[string]any, known ...string) error {
	var unknown []string
	for k := range params {
		if !slices.Contains(known, k) {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("%s does not accept parameters %v", unitType, unknown)
	}
	return nil
}

// validatePolicyParams validates the parameters of the units configured
// by an aggregation policy alone.
func validatePolicyParams(unitType string, params map[string]any) error {
	if err := checkKnownKeys(unitType, params, "policy"); err != nil {
		return err
	}

	if policy, ok := params["policy"]; ok {
		s, ok := policy.(string)
		if !ok {
			return fmt.Errorf("policy must be a string")
		}
		if _, err := engine.ParsePolicy(s); err != nil {
			return err
		}
	}
	return nil
}

// validatePalmaresParams validates the period group and the abandonment
// switch of palmares units.
func validatePalmaresParams(params map[string]any) error {
	if err := checkKnownKeys("palmares", params, "group", "exclude_abandoned"); err != nil {
		return err
	}

	if group, ok := params["group"]; ok {
		s, ok := group.(string)
		if !ok {
			return fmt.Errorf("group must be a string")
		}
		if _, err := domain.ParsePeriodGroup(s); err != nil {
			return err
		}
	}

	if exclude, ok := params["exclude_abandoned"]; ok {
		if _, ok := exclude.(bool); !ok {
			return fmt.Errorf("exclude_abandoned must be a boolean")
		}
	}
	return nil
}

// validateSubjectGroupsParams validates the grouping mode.
func validateSubjectGroupsParams(params map[string]any) error {
	if err := checkKnownKeys("subject_groups", params, "mode"); err != nil {
		return err
	}

	if mode, ok := params["mode"]; ok {
		s, ok := mode.(string)
		if !ok {
			return fmt.Errorf("mode must be a string")
		}
		if !slices.Contains([]string{"auto", "maxima", "domain"}, s) {
			return fmt.Errorf("invalid grouping mode: %s", s)
		}
	}
	return nil
}

// validateRepechageParams validates parameters for repechage units.
func validateRepechageParams(params map[string]any) error {
	if err := checkKnownKeys("repechage", params, "skip_unknown_subjects"); err != nil {
		return err
	}

	if skip, ok := params["skip_unknown_subjects"]; ok {
		if _, ok := skip.(bool); !ok {
			return fmt.Errorf("skip_unknown_subjects must be a boolean")
		}
	}
	return nil
}

// RegisterReportValidators registers custom validation functions with
// the validator instance for use in report configuration validation.
// RegisterReportValidators returns an error if any validator registration
// fails.
func RegisterReportValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("semver", validateSemver); err != nil {
		return fmt.Errorf("failed to register semver validator: %w", err)
	}

	if err := v.RegisterValidation("periodgroup", validatePeriodGroup); err != nil {
		return fmt.Errorf("failed to register periodgroup validator: %w", err)
	}

	if err := v.RegisterValidation("policy", validatePolicy); err != nil {
		return fmt.Errorf("failed to register policy validator: %w", err)
	}

	return nil
}

// validateSemver validates that a string follows semantic versioning
// format (X.Y.Z where X, Y, Z are non-negative integers).
func validateSemver(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	var major, minor, patch int
	n, err := fmt.Sscanf(value, "%d.%d.%d", &major, &minor, &patch)
	return err == nil && n == 3 && major >= 0 && minor >= 0 && patch >= 0
}

// validatePeriodGroup accepts the names of the nine period groups.
func validatePeriodGroup(fl validator.FieldLevel) bool {
	return domain.PeriodGroup(fl.Field().String()).Valid()
}

// validatePolicy accepts "strict" and "lenient".
func validatePolicy(fl validator.FieldLevel) bool {
	return engine.Policy(fl.Field().String()).Valid()
}
