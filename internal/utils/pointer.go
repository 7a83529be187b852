package utils

// Ptr returns a pointer to a copy of v.
//
//	config.Temperature = utils.Ptr(0.4)
func Ptr[T any](v T) *T {
	return &v
}
