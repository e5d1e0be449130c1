package pkg

func skipMe(a []int, i int) int {
	return a[i]
}

func checked(a []int, i int) int {
	return a[i] // want `bounds check retained`
}
