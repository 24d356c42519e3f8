package annotation

import (
	"strings"
	"testing"
)

func TestBoundingBox_Triangle(t *testing.T) {
	shapes := []Shape{
		{Label: "lesion", Points: [][2]float64{{0, 0}, {10, 0}, {0, 10}}},
	}

	box := BoundingBox(shapes)
	if box == nil {
		t.Fatal("expected a bounding box, got nil")
	}

	want := Bounds{X1: 0, Y1: 0, X2: 10, Y2: 10}
	if *box != want {
		t.Errorf("box: got %+v, want %+v", *box, want)
	}
}

func TestBoundingBox_Empty(t *testing.T) {
	if box := BoundingBox(nil); box != nil {
		t.Errorf("empty shape list: got %+v, want nil", *box)
	}
	if box := BoundingBox([]Shape{{Label: "empty"}}); box != nil {
		t.Errorf("shape without points: got %+v, want nil", *box)
	}
}

func TestBoundingBox_FractionalVerticesRoundOutward(t *testing.T) {
	shapes := []Shape{
		{Points: [][2]float64{{1.4, 2.6}, {10.2, 2.6}, {1.4, 9.9}}},
	}

	box := BoundingBox(shapes)
	if box == nil {
		t.Fatal("expected a bounding box, got nil")
	}

	want := Bounds{X1: 1, Y1: 2, X2: 11, Y2: 10}
	if *box != want {
		t.Errorf("box: got %+v, want %+v", *box, want)
	}
}

func TestLesionBounds_KeywordFiltering(t *testing.T) {
	doc, err := Parse(strings.NewReader(`{
		"imageWidth": 400, "imageHeight": 400,
		"shapes": [
			{"label": "liver", "shape_type": "polygon", "points": [[300,300],[350,300],[300,350]]},
			{"label": "tumor_lesion", "shape_type": "polygon", "points": [[10,10],[50,10],[50,60],[10,60]]}
		]
	}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	box := LesionBounds(doc)
	if box == nil {
		t.Fatal("expected a bounding box, got nil")
	}

	// Only the tumor_lesion shape participates; the liver shape must not
	// widen the box.
	want := Bounds{X1: 10, Y1: 10, X2: 50, Y2: 60}
	if *box != want {
		t.Errorf("box: got %+v, want %+v", *box, want)
	}
}

func TestBoundsExpand_Clamped(t *testing.T) {
	b := Bounds{X1: 5, Y1: 5, X2: 95, Y2: 95}
	got := b.Expand(10, 100, 100)
	want := Bounds{X1: 0, Y1: 0, X2: 100, Y2: 100}
	if got != want {
		t.Errorf("expand: got %+v, want %+v", got, want)
	}
}
