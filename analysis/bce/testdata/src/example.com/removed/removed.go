package pkg

func constant() int {
	var arr [4]int
	return arr[2] // want `bounds check eliminated: constant index 2 within length 4`
}

func made() int {
	a := make([]int, 8)
	s := 0
	for i := 0; i < 8; i++ {
		s += a[i] // want `bounds check eliminated: range within bounds`
	}
	return s
}

func unguarded(a []int, i int) int {
	return a[i]
}
