package predict

// MissingFields returns the required names absent from present, in required order.
func MissingFields(required, present []string) []string {
	have := make(map[string]struct{}, len(present))
	for _, name := range present {
		have[name] = struct{}{}
	}
	var missing []string
	for _, name := range required {
		if _, ok := have[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}
