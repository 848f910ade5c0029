/*
validate.go - Pick validation against the current LP pool

PURPOSE:
  Checks a proposed set of (LP, quantity) picks before a commit is
  attempted. Purely advisory: no side effects, so the UI can validate on
  every keystroke, and the engine re-runs the same checks inside the commit
  transaction against freshly fetched quantities.

RULES (per merged pick):
  1. Quantity must be a positive number        -> InvalidQuantityError
  2. LP must be present in the supplied pool   -> UnknownLPError
  3. Quantity must not exceed availableQty     -> ExceedsAvailableError
                                                  (carries the cap)

  Duplicate picks for the same LP are merged (quantities summed) before the
  checks, not treated as independent errors.

SEE ALSO:
  - engine.go: Re-runs Validate inside the commit transaction
*/
package allocation

// Validate checks picks against the pool and returns the first violation,
// or nil when every pick is committable against the supplied snapshot.
// Duplicate picks for the same LP are merged before evaluation.
func Validate(picks []Pick, pool []LicensePlate) error {
	byID := make(map[LPID]LicensePlate, len(pool))
	for _, lp := range pool {
		byID[lp.ID] = lp
	}

	for _, p := range MergePicks(picks) {
		if !p.Quantity.IsPositive() {
			return &InvalidQuantityError{LPID: p.LPID, Quantity: p.Quantity}
		}
		lp, ok := byID[p.LPID]
		if !ok {
			return &UnknownLPError{LPID: p.LPID}
		}
		if available := lp.AvailableQuantity(); p.Quantity.GreaterThan(available) {
			return &ExceedsAvailableError{
				LPID:      p.LPID,
				Requested: p.Quantity,
				Available: available,
			}
		}
	}
	return nil
}
