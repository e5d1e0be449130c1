package pkg

func sum(a []int) int {
	s := 0
	for i := 0; i < len(a); i++ {
		s += a[i]
	}
	return s
}

func guarded(a []int, i int) int {
	if i >= 0 && i < len(a) {
		return a[i]
	}
	return 0
}

func unguarded(a []int, i int) int {
	return a[i] // want `bounds check retained: range is unknown`
}

func wrongSlice(a, b []int) int {
	s := 0
	for i := 0; i < len(b); i++ {
		s += a[i] // want `bounds check retained`
	}
	return s
}
