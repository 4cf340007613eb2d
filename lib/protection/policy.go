package protection

import "time"

func needsProtection(status Status, protectionType string, until time.Time) bool {
	entry, ok := status.Get(protectionType)
	if !ok {
		return true
	}
	if entry.Level != LevelSysop {
		return true
	}
	return entry.Expiry.Before(until)
}

// ShouldProtect computes which protections are missing for a page that has
// to stay protected until `until`. Move protection is always required, edit
// protection only when `redirect` is set (a redirect can be retargeted with
// a plain edit).
func ShouldProtect(status Status, until time.Time, redirect bool) Plan {
	types := []string{TypeMove}
	if redirect {
		types = append(types, TypeEdit)
	}

	plan := Plan{}
	for _, t := range types {
		if needsProtection(status, t, until) {
			plan[t] = Change{Level: LevelSysop, Expiry: At(until)}
		}
	}
	return plan
}

// ShouldProtectUpload requires a file to be upload protected indefinitely,
// anything weaker gets replaced.
func ShouldProtectUpload(status Status) Plan {
	entry, ok := status.Get(TypeUpload)
	if ok && entry.Level == LevelSysop && entry.Expiry.Infinite {
		return Plan{}
	}
	return Plan{TypeUpload: {Level: LevelSysop, Expiry: Infinite}}
}
