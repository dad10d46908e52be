package internal

// Sizer implements io.Writer that tallies that number of bytes written.
//
// It measures entry data whose size the archive does not record.
type Sizer struct {
	Size int64
}

func (s *Sizer) Write(p []byte) (n int, err error) {
	n = len(p)
	s.Size += int64(n)
	return
}
