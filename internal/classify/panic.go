// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package classify

// classifyPanic is the second gate (spec.md §4.3): behind the whitelist
// gate so whitelisted management traffic keeps flowing even under panic,
// and ahead of the ACL/blacklist gates so nothing else gets past it.
func classifyPanic(snap *controlSnapshot) Verdict {
	if snap.panic {
		return DROP
	}
	return CONTINUE
}
