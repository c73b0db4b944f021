package booking

// SeatCheck reports whether a seat is free. Errors abort the selection.
type SeatCheck func(seat string) (bool, error)

// ChooseSeat walks the priority list in order and returns the first seat the
// check reports as available, along with the seats skipped before it.
// When nothing is free it returns ErrSeatUnavailable.
func ChooseSeat(priority []string, available SeatCheck) (string, []string, error) {
	var skipped []string
	for _, seat := range priority {
		ok, err := available(seat)
		if err != nil {
			return "", skipped, err
		}
		if ok {
			return seat, skipped, nil
		}
		skipped = append(skipped, seat)
	}
	return "", skipped, ErrSeatUnavailable
}
