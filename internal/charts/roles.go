package charts

import (
	"encoding/json"

	"insightchat-backend/internal/models"
)

// InferRoles picks rendering roles from the first record only; later rows
// are assumed to share its schema. It never fails: when nothing usable is
// found it returns the insufficient-dimensionality variant.
func InferRoles(data []models.Record, isScatter bool) models.RoleAssignment {
	insufficient := models.RoleAssignment{Kind: models.RolesInsufficientDimensionality}
	if len(data) == 0 || data[0].Len() == 0 {
		return insufficient
	}

	first := data[0]
	keys := first.Keys()
	var stringKeys, numberKeys []string
	for _, k := range keys {
		v, _ := first.Get(k)
		switch {
		case isNumber(v):
			numberKeys = append(numberKeys, k)
		case isString(v):
			stringKeys = append(stringKeys, k)
		}
	}

	if isScatter {
		if len(numberKeys) < 2 {
			return insufficient
		}
		return models.RoleAssignment{
			Kind: models.RolesResolvedScatter,
			XKey: numberKeys[0],
			YKey: numberKeys[1],
		}
	}

	category := keys[0]
	if len(stringKeys) > 0 {
		category = stringKeys[0]
	}

	value := firstExcept(numberKeys, category)
	if value == "" {
		value = firstExcept(keys, category)
	}
	if value == "" {
		value = category
	}

	return models.RoleAssignment{
		Kind:        models.RolesResolved,
		CategoryKey: category,
		ValueKey:    value,
	}
}

func firstExcept(keys []string, skip string) string {
	for _, k := range keys {
		if k != skip {
			return k
		}
	}
	return ""
}

func isNumber(v any) bool {
	switch v.(type) {
	case float64, float32, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, json.Number:
		return true
	}
	return false
}

func isString(v any) bool {
	_, ok := v.(string)
	return ok
}
