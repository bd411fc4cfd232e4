package catalog

import "strings"

// QualityAuto asks the provider to pick; resolution is skipped entirely.
const QualityAuto = "auto"

// tierFallbacks gives the lookup order for each named tier when the
// exact tier has no value in the descriptor's table.
var tierFallbacks = map[Tier][]Tier{
	TierLow:    {TierLow, TierMedium, TierHigh},
	TierMedium: {TierMedium, TierHigh, TierLow},
	TierHigh:   {TierHigh, TierMedium, TierLow},
}

// ResolveQualityInput maps a requested quality token to the provider
// input pair for the model, or nil when the model has no quality
// parameter or the caller explicitly requested "auto". An absent
// requested quality resolves to the high tier.
func ResolveQualityInput(m *VideoModel, requested string) map[string]any {
	if m == nil || m.QualityParam == "" {
		return nil
	}
	if strings.EqualFold(requested, QualityAuto) {
		return nil
	}
	if requested == "" {
		return resolveTier(m, TierHigh)
	}

	// 1. Exact raw value, case-insensitive against the explicit list.
	for _, opt := range m.QualityOptions {
		if strings.EqualFold(opt, requested) {
			return map[string]any{m.QualityParam: opt}
		}
	}

	// 2. Named tier.
	switch t := Tier(strings.ToLower(requested)); t {
	case TierLow, TierMedium, TierHigh:
		return resolveTier(m, t)
	}

	// 3. Unknown token: normalize to the nearest tier and retry.
	return resolveTier(m, normalizeTier(requested))
}

// resolveTier looks up a tier value with adjacent-tier fallback.
func resolveTier(m *VideoModel, t Tier) map[string]any {
	for _, candidate := range tierFallbacks[t] {
		if v, ok := m.QualityTiers[candidate]; ok && v != nil {
			return map[string]any{m.QualityParam: v}
		}
	}
	return nil
}

// normalizeTier maps an arbitrary quality token onto the nearest named
// tier, defaulting to high.
func normalizeTier(requested string) Tier {
	s := strings.ToLower(requested)
	switch {
	case strings.Contains(s, "low") || strings.Contains(s, "draft") ||
		strings.Contains(s, "360") || strings.Contains(s, "480"):
		return TierLow
	case strings.Contains(s, "med") || strings.Contains(s, "720"):
		return TierMedium
	default:
		return TierHigh
	}
}
