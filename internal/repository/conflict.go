package repository

// ConflictingSeats returns the requested seat codes that are already
// present in occupied, in request order. An empty result means the
// request is clear. The function is pure; Reserve runs it under the
// inventory row lock as the commit-time guard, and callers may also
// use it for advisory pre-checks. A clear pre-check result is never a
// reservation guarantee, since occupancy can change between check and
// commit.
func ConflictingSeats(requested, occupied []string) []string {
	if len(requested) == 0 || len(occupied) == 0 {
		return nil
	}
	taken := make(map[string]struct{}, len(occupied))
	for _, s := range occupied {
		taken[s] = struct{}{}
	}
	var conflicts []string
	for _, s := range requested {
		if _, ok := taken[s]; ok {
			conflicts = append(conflicts, s)
		}
	}
	return conflicts
}
