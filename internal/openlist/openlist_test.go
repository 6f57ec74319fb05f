package openlist

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstruction(t *testing.T) {
	assert.True(t, Nothing[int]().IsEmpty())
	assert.False(t, Nothing[int]().IsEverything())
	assert.True(t, Everything[int]().IsEverything())
	assert.False(t, Everything[int]().IsEmpty())

	l := Of(3, 1, 3, 2, 1)
	assert.Equal(t, []int{3, 1, 2}, l.Items(), "items keep first-insertion order and drop duplicates")
	assert.False(t, l.IsEmpty())
	assert.False(t, l.IsEverything())
}

func TestIncludes(t *testing.T) {
	in := Of("a", "b")
	assert.True(t, in.Includes("a"))
	assert.False(t, in.Includes("c"))

	ex := Excluding("a", "b")
	assert.False(t, ex.Includes("a"))
	assert.True(t, ex.Includes("c"))

	assert.True(t, Everything[string]().Includes("anything"))
	assert.False(t, Nothing[string]().Includes("anything"))
}

func TestUnionIntersection(t *testing.T) {
	a := Of(1, 2, 3)
	b := Of(3, 4)

	assert.True(t, a.Union(b).Equal(Of(1, 2, 3, 4)))
	assert.True(t, a.Intersection(b).Equal(Of(3)))

	// inclusive vs exclusive
	ex := Excluding(2, 4)
	assert.True(t, a.Union(ex).Equal(Excluding(4)), "1,2,3 ∪ ¬{2,4} = ¬{4}")
	assert.True(t, a.Intersection(ex).Equal(Of(1, 3)))

	// exclusive vs exclusive
	assert.True(t, Excluding(1, 2).Union(Excluding(2, 3)).Equal(Excluding(2)))
	assert.True(t, Excluding(1, 2).Intersection(Excluding(2, 3)).Equal(Excluding(1, 2, 3)))
}

func TestCommutativity(t *testing.T) {
	cases := []struct{ a, b List[int] }{
		{Of(1, 2), Of(2, 3)},
		{Of(1, 2), Excluding(2, 3)},
		{Excluding(1), Excluding(2)},
		{Nothing[int](), Everything[int]()},
	}
	for _, c := range cases {
		assert.True(t, c.a.Union(c.b).Equal(c.b.Union(c.a)))
		assert.True(t, c.a.Intersection(c.b).Equal(c.b.Intersection(c.a)))
	}
}

func TestDeMorgan(t *testing.T) {
	cases := []struct{ a, b List[int] }{
		{Of(1, 2, 3), Of(3, 4)},
		{Of(1, 2), Excluding(2, 3)},
		{Excluding(1, 2), Excluding(2, 3)},
	}
	for _, c := range cases {
		assert.True(t, c.a.Union(c.b).Inverse().Equal(c.a.Inverse().Intersection(c.b.Inverse())))
		assert.True(t, c.a.Intersection(c.b).Inverse().Equal(c.a.Inverse().Union(c.b.Inverse())))
	}
}

func TestInverseInvolution(t *testing.T) {
	for _, l := range []List[int]{Of(1, 2), Excluding(3), Nothing[int](), Everything[int]()} {
		assert.True(t, l.Inverse().Inverse().Equal(l))
	}
}

func TestDifference(t *testing.T) {
	a := Of(1, 2, 3)
	b := Of(2, 4)
	assert.True(t, a.Difference(b).Equal(Of(1, 3)))
	assert.True(t, a.Difference(b).Equal(a.Intersection(b.Inverse())))
	assert.True(t, Everything[int]().Difference(a).Equal(Excluding(1, 2, 3)))
}

func TestIdentityElements(t *testing.T) {
	a := Of(1, 2)
	assert.True(t, a.Union(Nothing[int]()).Equal(a))
	assert.True(t, a.Intersection(Everything[int]()).Equal(a))
	assert.True(t, a.Union(Everything[int]()).IsEverything())
	assert.True(t, a.Intersection(Nothing[int]()).IsEmpty())
}
