package scalar

import "math/bits"

// acc is a 192 bit accumulator (c0, c1, c2), of which at most 160 bits are used.
type acc struct {
	c0, c1, c2 uint64
}

// muladd adds a⋅b.
func (t *acc) muladd(a, b uint64) {
	hi, lo := bits.Mul64(a, b)
	var c uint64
	t.c0, c = bits.Add64(t.c0, lo, 0)
	t.c1, c = bits.Add64(t.c1, hi, c)
	t.c2 += c
}

// muladdFast adds a⋅b, assuming c1 does not overflow.
func (t *acc) muladdFast(a, b uint64) {
	hi, lo := bits.Mul64(a, b)
	var c uint64
	t.c0, c = bits.Add64(t.c0, lo, 0)
	t.c1 += hi + c
}

// muladd2 adds 2⋅a⋅b.
func (t *acc) muladd2(a, b uint64) {
	hi, lo := bits.Mul64(a, b)
	top := hi >> 63
	hi = hi<<1 | lo>>63
	lo <<= 1
	var c uint64
	t.c0, c = bits.Add64(t.c0, lo, 0)
	t.c1, c = bits.Add64(t.c1, hi, c)
	t.c2 += top + c
}

// sumadd adds a.
func (t *acc) sumadd(a uint64) {
	var c uint64
	t.c0, c = bits.Add64(t.c0, a, 0)
	t.c1, c = bits.Add64(t.c1, 0, c)
	t.c2 += c
}

// sumaddFast adds a, assuming c1 does not overflow.
func (t *acc) sumaddFast(a uint64) {
	var c uint64
	t.c0, c = bits.Add64(t.c0, a, 0)
	t.c1 += c
}

// extract returns the lowest limb and shifts the accumulator down by 64 bits.
func (t *acc) extract() uint64 {
	r := t.c0
	t.c0, t.c1, t.c2 = t.c1, t.c2, 0
	return r
}

// extractFast is extract, assuming c2 = 0.
func (t *acc) extractFast() uint64 {
	r := t.c0
	t.c0, t.c1 = t.c1, 0
	return r
}

// mul512 returns the full product a⋅b, as eight little endian limbs.
func mul512(a, b *Scalar) [8]uint64 {
	var l [8]uint64
	var t acc

	t.muladdFast(a[0], b[0])
	l[0] = t.extractFast()

	t.muladd(a[0], b[1])
	t.muladd(a[1], b[0])
	l[1] = t.extract()

	t.muladd(a[0], b[2])
	t.muladd(a[1], b[1])
	t.muladd(a[2], b[0])
	l[2] = t.extract()

	t.muladd(a[0], b[3])
	t.muladd(a[1], b[2])
	t.muladd(a[2], b[1])
	t.muladd(a[3], b[0])
	l[3] = t.extract()

	t.muladd(a[1], b[3])
	t.muladd(a[2], b[2])
	t.muladd(a[3], b[1])
	l[4] = t.extract()

	t.muladd(a[2], b[3])
	t.muladd(a[3], b[2])
	l[5] = t.extract()

	t.muladdFast(a[3], b[3])
	l[6] = t.extractFast()
	l[7] = t.c0
	return l
}

// sqr512 returns a², computing each cross term once.
func sqr512(a *Scalar) [8]uint64 {
	var l [8]uint64
	var t acc

	t.muladdFast(a[0], a[0])
	l[0] = t.extractFast()

	t.muladd2(a[0], a[1])
	l[1] = t.extract()

	t.muladd2(a[0], a[2])
	t.muladd(a[1], a[1])
	l[2] = t.extract()

	t.muladd2(a[0], a[3])
	t.muladd2(a[1], a[2])
	l[3] = t.extract()

	t.muladd2(a[1], a[3])
	t.muladd(a[2], a[2])
	l[4] = t.extract()

	t.muladd2(a[2], a[3])
	l[5] = t.extract()

	t.muladdFast(a[3], a[3])
	l[6] = t.extractFast()
	l[7] = t.c0
	return l
}

// reduce512 reduces a 512 bit integer modulo n.
//
// Since 2²⁵⁶ ≡ 2²⁵⁶ - n (mod n), the top half is folded back twice,
// going from 512 to 385 bits, then to 258 bits, then to 256 bits with a final
// conditional subtraction.
func reduce512(l *[8]uint64) Scalar {
	n0, n1, n2, n3 := l[4], l[5], l[6], l[7]
	var t acc

	// m = l[0..3] + n⋅NC
	t.c0 = l[0]
	t.muladdFast(n0, NC0)
	m0 := t.extractFast()
	t.sumaddFast(l[1])
	t.muladd(n1, NC0)
	t.muladd(n0, NC1)
	m1 := t.extract()
	t.sumadd(l[2])
	t.muladd(n2, NC0)
	t.muladd(n1, NC1)
	t.sumadd(n0)
	m2 := t.extract()
	t.sumadd(l[3])
	t.muladd(n3, NC0)
	t.muladd(n2, NC1)
	t.sumadd(n1)
	m3 := t.extract()
	t.muladd(n3, NC1)
	t.sumadd(n2)
	m4 := t.extract()
	t.sumaddFast(n3)
	m5 := t.extractFast()
	m6 := t.c0

	// p = m[0..3] + m[4..6]⋅NC
	t = acc{c0: m0}
	t.muladdFast(m4, NC0)
	p0 := t.extractFast()
	t.sumaddFast(m1)
	t.muladd(m5, NC0)
	t.muladd(m4, NC1)
	p1 := t.extract()
	t.sumadd(m2)
	t.muladd(m6, NC0)
	t.muladd(m5, NC1)
	t.sumadd(m4)
	p2 := t.extract()
	t.sumaddFast(m3)
	t.muladdFast(m6, NC1)
	t.sumaddFast(m5)
	p3 := t.extractFast()
	p4 := t.c0 + m6

	// r = p[0..3] + p4⋅NC
	var r Scalar
	var c, hi, lo uint64
	hi, lo = bits.Mul64(NC0, p4)
	r[0], c = bits.Add64(p0, lo, 0)
	carry := hi + c

	hi, lo = bits.Mul64(NC1, p4)
	r[1], c = bits.Add64(p1, lo, 0)
	hi += c
	r[1], c = bits.Add64(r[1], carry, 0)
	carry = hi + c

	r[2], c = bits.Add64(p2, p4, 0)
	hi = c
	r[2], c = bits.Add64(r[2], carry, 0)
	carry = hi + c

	r[3], c = bits.Add64(p3, carry, 0)

	r.reduce(c + boolToUint64(CheckOverflow(&r)))
	return r
}

// Mul returns a⋅b mod n.
func Mul(a, b *Scalar) Scalar {
	l := mul512(a, b)
	return reduce512(&l)
}

// Sqr returns a² mod n.
func Sqr(a *Scalar) Scalar {
	l := sqr512(a)
	return reduce512(&l)
}

// MulAssign sets s = s⋅a and returns s.
func (s *Scalar) MulAssign(a *Scalar) *Scalar {
	*s = Mul(s, a)
	return s
}
