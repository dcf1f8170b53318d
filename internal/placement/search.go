package placement

import (
	"fmt"
	"image"

	"github.com/rs/zerolog"
)

// ShortImageStep is the fixed scan stride used on images shorter than one
// frequency interval. It does not follow Config.SearchStep.
const ShortImageStep = 1000

// Config controls the placement search. It is snapshotted once per run.
type Config struct {
	Frequency  int
	SearchStep int
	Threshold  int
	MaxSteps   int
}

// Validate enforces the minimums the search loops rely on.
func (c Config) Validate() error {
	switch {
	case c.Frequency < 1:
		return fmt.Errorf("frequency must be >= 1, got %d", c.Frequency)
	case c.SearchStep < 1:
		return fmt.Errorf("search step must be >= 1, got %d", c.SearchStep)
	case c.Threshold < 0:
		return fmt.Errorf("threshold must be >= 0, got %d", c.Threshold)
	case c.MaxSteps < 0:
		return fmt.Errorf("max steps must be >= 0, got %d", c.MaxSteps)
	}
	return nil
}

// Strategy names the search path taken for one image.
type Strategy int

const (
	StrategyIneligible Strategy = iota
	StrategyShort
	StrategyTall
)

func (s Strategy) String() string {
	switch s {
	case StrategyShort:
		return "short"
	case StrategyTall:
		return "tall"
	default:
		return "ineligible"
	}
}

// Placement is a resolved top-left watermark position.
type Placement struct {
	X, Y int
	// Band is the 1-based band index for tall images and 0 for short ones.
	Band int
	// Steps counts the extra searchStep offsets probed before this spot won.
	Steps int
}

// Point returns the placement as an image.Point.
func (p Placement) Point() image.Point {
	return image.Pt(p.X, p.Y)
}

// Plan is the outcome of a search. An empty Placements slice means no
// uniform spot was found and the host should pass through unchanged.
type Plan struct {
	Strategy   Strategy
	Bands      int
	Placements []Placement
}

// Found reports whether at least one position resolved.
func (p Plan) Found() bool {
	return len(p.Placements) > 0
}

// Searcher locates uniform spots for a watermark of a given size.
type Searcher struct {
	cfg Config
	log zerolog.Logger
}

func NewSearcher(cfg Config, log zerolog.Logger) *Searcher {
	return &Searcher{cfg: cfg, log: log}
}

// Uniform probes the w x h region at (x, y). Probe failures are logged and
// count as not uniform.
func (s *Searcher) Uniform(img image.Image, x, y, w, h int) bool {
	ok, err := IsUniform(img, image.Rect(x, y, x+w, y+h), s.cfg.Threshold)
	if err != nil {
		s.log.Debug().Err(err).Int("x", x).Int("y", y).Msg("uniformity probe failed")
		return false
	}
	return ok
}

// Search computes watermark positions on img for a watermark of size wm.
// Positions are always right-aligned.
func (s *Searcher) Search(img image.Image, wm image.Point) Plan {
	b := img.Bounds()
	if wm.X <= 0 || wm.Y <= 0 || wm.X > b.Dx() || wm.Y > b.Dy() {
		return Plan{Strategy: StrategyIneligible}
	}
	if b.Dy() < s.cfg.Frequency {
		return s.searchShort(img, wm)
	}
	return s.searchTall(img, wm)
}

func (s *Searcher) searchShort(img image.Image, wm image.Point) Plan {
	b := img.Bounds()
	plan := Plan{Strategy: StrategyShort}
	x := b.Max.X - wm.X
	for y := b.Min.Y; y+wm.Y <= b.Max.Y; y += ShortImageStep {
		if s.Uniform(img, x, y, wm.X, wm.Y) {
			plan.Placements = append(plan.Placements, Placement{X: x, Y: y})
			break
		}
	}
	return plan
}

func (s *Searcher) searchTall(img image.Image, wm image.Point) Plan {
	b := img.Bounds()
	plan := Plan{Strategy: StrategyTall}
	x := b.Max.X - wm.X
	height := b.Dy()

	// Bands stop at the first start that cannot hold the watermark, even when
	// a later offset inside the trailing segment would fit.
	for band, y := 1, s.cfg.Frequency; y < height; band, y = band+1, y+s.cfg.Frequency {
		if y+wm.Y > height {
			break
		}
		plan.Bands++
		if p, ok := s.searchBand(img, x, y, wm, height); ok {
			p.Band = band
			plan.Placements = append(plan.Placements, p)
		}
	}
	return plan
}

func (s *Searcher) searchBand(img image.Image, x, start int, wm image.Point, height int) (Placement, bool) {
	top := img.Bounds().Min.Y
	if s.Uniform(img, x, top+start, wm.X, wm.Y) {
		return Placement{X: x, Y: top + start}, true
	}

	limit := min(start+s.cfg.Frequency, height-wm.Y)
	for step := 1; step <= s.cfg.MaxSteps; step++ {
		y := start + step*s.cfg.SearchStep
		if y > limit {
			break
		}
		if s.Uniform(img, x, top+y, wm.X, wm.Y) {
			return Placement{X: x, Y: top + y, Steps: step}, true
		}
	}
	return Placement{}, false
}
