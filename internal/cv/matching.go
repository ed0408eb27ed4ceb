package cv

import (
	"image"
	"image/color"
	"math"
	"sort"

	"github.com/nfnt/resize"
)

// MatchResult contains template matching results
type MatchResult struct {
	Found      bool
	Location   image.Point
	Size       image.Point
	Confidence float64
}

// Box converts a match into a named detection box
func (m *MatchResult) Box(name string) *Box {
	return &Box{
		Name:       name,
		X:          m.Location.X,
		Y:          m.Location.Y,
		Width:      m.Size.X,
		Height:     m.Size.Y,
		Confidence: m.Confidence,
	}
}

// MatchMethod defines template matching algorithm
type MatchMethod int

const (
	// MatchMethodSAD - Sum of Absolute Differences (fastest)
	MatchMethodSAD MatchMethod = iota
	// MatchMethodSSD - Sum of Squared Differences (balanced)
	MatchMethodSSD
	// MatchMethodNCC - Normalized Cross-Correlation (most accurate)
	MatchMethodNCC
)

// MatchConfig configures template matching
type MatchConfig struct {
	Method       MatchMethod
	Threshold    float64          // 0.0-1.0, higher = more strict
	SearchRegion *image.Rectangle // Optional: limit search area
}

// DefaultMatchConfig returns recommended settings
func DefaultMatchConfig() *MatchConfig {
	return &MatchConfig{
		Method:    MatchMethodNCC,
		Threshold: 0.85,
	}
}

// Search tuning. The shortest needle side at the coarsest pyramid level is
// coarseNeedleSide pixels and up to coarseCandidates peaks from that level are
// refined. Peaks more than coarseSlack under the threshold are dropped after the
// coarse scan, and more than fineSlack under it before the full-resolution pass.
const (
	coarseNeedleSide = 16
	coarseCandidates = 3
	coarseSlack      = 0.5
	fineSlack        = 0.2
)

// FindTemplate finds the best placement of needle inside haystack. Matching runs
// on grayscale: an exhaustive search on a downscaled pyramid level, then a local
// refinement at each finer level down to full resolution.
func FindTemplate(haystack, needle *image.RGBA, config *MatchConfig) *MatchResult {
	if config == nil {
		config = DefaultMatchConfig()
	}

	nw, nh := needle.Bounds().Dx(), needle.Bounds().Dy()
	result := &MatchResult{Size: image.Point{X: nw, Y: nh}}

	search := haystack.Bounds()
	if config.SearchRegion != nil {
		search = config.SearchRegion.Intersect(search)
	}
	if search.Empty() || nw == 0 || nh == 0 {
		return result
	}
	if search.Dx() < nw || search.Dy() < nh {
		// Template doesn't fit in search region
		return result
	}

	levels := buildPyramid(toGray(haystack, search), toGray(needle, needle.Bounds()))

	coarse := levels[0]
	peaks := coarse.scan(config.Method)
	if len(peaks) == 0 {
		return result
	}
	result.Confidence = peaks[0].score

	if len(levels) > 1 {
		peaks = dropBelow(peaks, config.Threshold-coarseSlack)
	}

	for i := 1; i < len(levels); i++ {
		// Full resolution is the expensive level; only a plausible leader goes there
		if i == len(levels)-1 && len(peaks) > 0 {
			if i > 1 {
				peaks = dropBelow(peaks, config.Threshold-fineSlack)
			}
			if len(peaks) > 1 {
				peaks = peaks[:1]
			}
		}
		prev, cur := levels[i-1], levels[i]
		for j := range peaks {
			peaks[j] = cur.refine(config.Method, peaks[j], prev)
		}
		sort.Slice(peaks, func(a, b int) bool { return peaks[a].score > peaks[b].score })
	}
	if len(peaks) == 0 {
		return result
	}

	best := peaks[0]
	result.Confidence = best.score
	result.Location = image.Point{X: search.Min.X + best.x, Y: search.Min.Y + best.y}
	result.Found = best.score >= config.Threshold
	return result
}

// toGray converts rect of img to 8-bit luma
func toGray(img *image.RGBA, rect image.Rectangle) *image.Gray {
	out := image.NewGray(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	for y := 0; y < rect.Dy(); y++ {
		src := img.PixOffset(rect.Min.X, rect.Min.Y+y)
		dst := out.PixOffset(0, y)
		for x := 0; x < rect.Dx(); x++ {
			r, g, b := uint32(img.Pix[src]), uint32(img.Pix[src+1]), uint32(img.Pix[src+2])
			out.Pix[dst+x] = uint8((19595*r + 38470*g + 7471*b + 1<<15) >> 16)
			src += 4
		}
	}
	return out
}

// grayPlane is a grayscale image as floats. Haystack planes carry integral
// tables of values and squares for constant-time window sums.
type grayPlane struct {
	w, h    int
	pix     []float64
	sum, sq []float64
	total   float64
	totalSq float64
}

func newPlane(img image.Image, integral bool) *grayPlane {
	b := img.Bounds()
	p := &grayPlane{w: b.Dx(), h: b.Dy(), pix: make([]float64, b.Dx()*b.Dy())}

	gray, ok := img.(*image.Gray)
	for y := 0; y < p.h; y++ {
		for x := 0; x < p.w; x++ {
			var v uint8
			if ok {
				v = gray.Pix[gray.PixOffset(b.Min.X+x, b.Min.Y+y)]
			} else {
				v = color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray).Y
			}
			f := float64(v)
			p.pix[y*p.w+x] = f
			p.total += f
			p.totalSq += f * f
		}
	}

	if integral {
		stride := p.w + 1
		p.sum = make([]float64, stride*(p.h+1))
		p.sq = make([]float64, stride*(p.h+1))
		for y := 0; y < p.h; y++ {
			var rowSum, rowSq float64
			for x := 0; x < p.w; x++ {
				v := p.pix[y*p.w+x]
				rowSum += v
				rowSq += v * v
				p.sum[(y+1)*stride+x+1] = p.sum[y*stride+x+1] + rowSum
				p.sq[(y+1)*stride+x+1] = p.sq[y*stride+x+1] + rowSq
			}
		}
	}
	return p
}

// window returns the sum and sum of squares of the w x h window at (x, y)
func (p *grayPlane) window(x, y, w, h int) (sum, sq float64) {
	stride := p.w + 1
	a, b := y*stride+x, y*stride+x+w
	c, d := (y+h)*stride+x, (y+h)*stride+x+w
	return p.sum[d] - p.sum[b] - p.sum[c] + p.sum[a], p.sq[d] - p.sq[b] - p.sq[c] + p.sq[a]
}

// matchLevel is one pyramid level. sx and sy are full-resolution pixels per
// level pixel.
type matchLevel struct {
	hay, needle *grayPlane
	sx, sy      float64
}

type peak struct {
	x, y  int
	score float64
}

// dropBelow keeps the peaks scoring at least floor, preserving order
func dropBelow(peaks []peak, floor float64) []peak {
	kept := peaks[:0]
	for _, p := range peaks {
		if p.score >= floor {
			kept = append(kept, p)
		}
	}
	return kept
}

// buildPyramid returns levels from coarsest to full resolution. Needles shorter
// than twice coarseNeedleSide get a single full-resolution level.
func buildPyramid(hay, needle *image.Gray) []matchLevel {
	nw, nh := needle.Bounds().Dx(), needle.Bounds().Dy()
	factor := min(nw, nh) / coarseNeedleSide

	var factors []int
	for f := factor; f > 1; f /= 2 {
		factors = append(factors, f)
	}
	factors = append(factors, 1)

	hw, hh := hay.Bounds().Dx(), hay.Bounds().Dy()
	levels := make([]matchLevel, 0, len(factors))
	for _, f := range factors {
		if f == 1 {
			levels = append(levels, matchLevel{hay: newPlane(hay, true), needle: newPlane(needle, false), sx: 1, sy: 1})
			continue
		}
		// The haystack takes the needle's exact scale so both shrink alike
		pw, ph := nw/f, nh/f
		lw := max(int(math.Round(float64(hw*pw)/float64(nw))), pw)
		lh := max(int(math.Round(float64(hh*ph)/float64(nh))), ph)
		h := resize.Resize(uint(lw), uint(lh), hay, resize.Bilinear)
		n := resize.Resize(uint(pw), uint(ph), needle, resize.Bilinear)
		levels = append(levels, matchLevel{
			hay:    newPlane(h, true),
			needle: newPlane(n, false),
			sx:     float64(hw) / float64(lw),
			sy:     float64(hh) / float64(lh),
		})
	}
	return levels
}

// scan scores every placement and returns the strongest separated peaks, best first
func (l matchLevel) scan(method MatchMethod) []peak {
	maxX, maxY := l.hay.w-l.needle.w, l.hay.h-l.needle.h
	if maxX < 0 || maxY < 0 {
		return nil
	}

	peaks := make([]peak, 0, coarseCandidates)
	for y := 0; y <= maxY; y++ {
		for x := 0; x <= maxX; x++ {
			peaks = addPeak(peaks, peak{x: x, y: y, score: l.score(method, x, y)})
		}
	}
	sort.Slice(peaks, func(a, b int) bool { return peaks[a].score > peaks[b].score })
	return peaks
}

// addPeak keeps at most coarseCandidates peaks at least 3 pixels apart
func addPeak(peaks []peak, p peak) []peak {
	weakest := -1
	for i, q := range peaks {
		if abs(q.x-p.x) <= 2 && abs(q.y-p.y) <= 2 {
			if p.score > q.score {
				peaks[i] = p
			}
			return peaks
		}
		if weakest < 0 || q.score < peaks[weakest].score {
			weakest = i
		}
	}
	if len(peaks) < coarseCandidates {
		return append(peaks, p)
	}
	if p.score > peaks[weakest].score {
		peaks[weakest] = p
	}
	return peaks
}

// refine searches around a peak found at the coarser level prev
func (l matchLevel) refine(method MatchMethod, p peak, prev matchLevel) peak {
	rx, ry := prev.sx/l.sx, prev.sy/l.sy
	cx := int(math.Round(float64(p.x) * rx))
	cy := int(math.Round(float64(p.y) * ry))
	radius := int(math.Ceil(math.Max(rx, ry))) + 1

	maxX, maxY := l.hay.w-l.needle.w, l.hay.h-l.needle.h
	best := peak{score: -1}
	for y := max(cy-radius, 0); y <= min(cy+radius, maxY); y++ {
		for x := max(cx-radius, 0); x <= min(cx+radius, maxX); x++ {
			if s := l.score(method, x, y); s > best.score {
				best = peak{x: x, y: y, score: s}
			}
		}
	}
	if best.score < 0 {
		return peak{x: min(max(cx, 0), maxX), y: min(max(cy, 0), maxY)}
	}
	return best
}

// score rates the needle placed at (x, y). All methods return 0-1, higher is better.
func (l matchLevel) score(method MatchMethod, x, y int) float64 {
	switch method {
	case MatchMethodSAD:
		return l.matchSAD(x, y)
	case MatchMethodNCC:
		return l.matchNCC(x, y)
	default:
		return l.matchSSD(x, y)
	}
}

// matchSAD - Sum of Absolute Differences (fastest, least accurate)
func (l matchLevel) matchSAD(x, y int) float64 {
	n := l.needle
	var sad float64
	for ny := 0; ny < n.h; ny++ {
		row := l.hay.pix[(y+ny)*l.hay.w+x:]
		for nx, v := range n.pix[ny*n.w : (ny+1)*n.w] {
			sad += math.Abs(row[nx] - v)
		}
	}
	return 1.0 - sad/float64(n.w*n.h*255)
}

// matchSSD - Sum of Squared Differences (balanced)
func (l matchLevel) matchSSD(x, y int) float64 {
	n := l.needle
	var ssd float64
	for ny := 0; ny < n.h; ny++ {
		row := l.hay.pix[(y+ny)*l.hay.w+x:]
		for nx, v := range n.pix[ny*n.w : (ny+1)*n.w] {
			d := row[nx] - v
			ssd += d * d
		}
	}
	return 1.0 - ssd/float64(n.w*n.h*255*255)
}

// matchNCC - zero-mean normalized cross-correlation, negative scores clamp to 0
func (l matchLevel) matchNCC(x, y int) float64 {
	n := l.needle
	count := float64(n.w * n.h)
	sumH, sumHH := l.hay.window(x, y, n.w, n.h)

	var sumHN float64
	for ny := 0; ny < n.h; ny++ {
		row := l.hay.pix[(y+ny)*l.hay.w+x:]
		for nx, v := range n.pix[ny*n.w : (ny+1)*n.w] {
			sumHN += row[nx] * v
		}
	}

	numerator := sumHN - sumH*n.total/count
	varH := sumHH - sumH*sumH/count
	varN := n.totalSq - n.total*n.total/count
	// Below one gray level of spread a patch counts as flat. Flat against flat
	// falls back to a plain difference score; flat against texture never matches.
	flatH, flatN := varH < count, varN < count
	switch {
	case flatH && flatN:
		return l.matchSSD(x, y)
	case flatH || flatN:
		return 0
	}
	r := numerator / math.Sqrt(varH*varN)
	return math.Max(0, math.Min(1, r))
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// CropRegion copies rect out of img into a new image anchored at (0,0)
func CropRegion(img *image.RGBA, rect image.Rectangle) *image.RGBA {
	rect = rect.Intersect(img.Bounds())
	out := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	for y := 0; y < rect.Dy(); y++ {
		src := img.PixOffset(rect.Min.X, rect.Min.Y+y)
		dst := out.PixOffset(0, y)
		copy(out.Pix[dst:dst+rect.Dx()*4], img.Pix[src:src+rect.Dx()*4])
	}
	return out
}
