package cv

// Template is a named reference image. Region and the image itself are authored at
// the service's base resolution and scaled to the live frame on use.
type Template struct {
	Name      string
	Path      string
	Threshold float64
	Region    *Region
}

// InRegion sets the search region for the template
func (t Template) InRegion(x1, y1, x2, y2 int) Template {
	region := NewRegion(x1, y1, x2, y2)
	t.Region = &region
	return t
}

// WithThreshold sets the matching threshold
func (t Template) WithThreshold(threshold float64) Template {
	t.Threshold = threshold
	return t
}
