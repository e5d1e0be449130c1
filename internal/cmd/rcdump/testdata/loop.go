package pkg

func sum(a []int) int {
	s := 0
	for i := 0; i < len(a); i++ {
		s += a[i]
	}
	return s
}

func noChecks(x int) int {
	return x + 1
}
