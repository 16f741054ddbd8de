package scalar

// sqrN returns a^(2^count).
func sqrN(a *Scalar, count int) Scalar {
	r := *a
	for i := 0; i < count; i++ {
		r = Sqr(&r)
	}
	return r
}

// Inverse returns a⁻¹ = aⁿ⁻² mod n.
//
// The exponentiation follows a fixed addition chain, so the sequence of
// operations does not depend on a. a must not be 0, in which case the result is 0.
func Inverse(a *Scalar) Scalar {
	// xN = a^(2^N - 1), uM = a^M
	u2 := Sqr(a)
	x2 := Mul(&u2, a)
	u5 := Mul(&u2, &x2)
	x3 := Mul(&u5, &u2)
	u9 := Mul(&x3, &u2)
	u11 := Mul(&u9, &u2)
	u13 := Mul(&u11, &u2)

	x6 := sqrN(&u13, 2)
	x6.MulAssign(&u11)
	x8 := sqrN(&x6, 2)
	x8.MulAssign(&x2)
	x14 := sqrN(&x8, 6)
	x14.MulAssign(&x6)
	x28 := sqrN(&x14, 14)
	x28.MulAssign(&x14)
	x56 := sqrN(&x28, 28)
	x56.MulAssign(&x28)
	x112 := sqrN(&x56, 56)
	x112.MulAssign(&x56)
	x126 := sqrN(&x112, 14)
	x126.MulAssign(&x14)

	// The remaining bits of n - 2, as (squarings, window) pairs.
	tail := [...]struct {
		n int
		m *Scalar
	}{
		{3, &u5},   // 101
		{4, &x3},   // 111
		{4, &u5},   // 101
		{5, &u11},  // 1011
		{4, &u11},  // 1011
		{4, &x3},   // 111
		{5, &x3},   // 111
		{6, &u13},  // 1101
		{4, &u5},   // 101
		{3, &x3},   // 111
		{5, &u9},   // 1001
		{6, &u5},   // 101
		{10, &x3},  // 111
		{4, &x3},   // 111
		{9, &x8},   // 11111111
		{5, &u9},   // 1001
		{6, &u11},  // 1011
		{4, &u13},  // 1101
		{5, &x2},   // 11
		{6, &u13},  // 1101
		{10, &u13}, // 1101
		{4, &u9},   // 1001
		{6, a},     // 1
		{8, &x6},   // 111111
	}
	t := x126
	for _, step := range tail {
		t = sqrN(&t, step.n)
		t.MulAssign(step.m)
	}
	return t
}

// Invert sets s = s⁻¹ and returns s.
func (s *Scalar) Invert() *Scalar {
	*s = Inverse(s)
	return s
}
