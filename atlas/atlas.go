// Package atlas parses the Spine texture atlas text format: blank line
// separated pages, each a title line plus key:value lines followed by regions.
package atlas

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/sk2233/spinal/skeleton"
)

type Page struct {
	Name      string
	Width     int
	Height    int
	Format    string
	MinFilter string
	MagFilter string
	Repeat    string // none x y xy
	PMA       bool
}

type Region struct {
	Page  int
	Name  string
	Index int // -1 表示没有序号
	// bounds 中的尺寸，未旋转前的宽高
	X, Y, Width, Height int
	// 打包时裁掉的左下空白与原始尺寸
	OffsetX, OffsetY              int
	OriginalWidth, OriginalHeight int
	Degrees                       int
	Rotate                        bool
	Split                         *[4]int
	Pad                           *[4]int
}

// Packed returns the rectangle the region occupies on its page.
func (r *Region) Packed() (x, y, w, h int) {
	if r.Degrees == 90 || r.Degrees == 270 {
		return r.X, r.Y, r.Height, r.Width
	}
	return r.X, r.Y, r.Width, r.Height
}

// Atlas keeps regions in declared packing order across all pages.
type Atlas struct {
	Pages   []*Page
	Regions []*Region
}

// FindRegion returns the first region with name, nil when there is none.
func (a *Atlas) FindRegion(name string) *Region {
	if idx := a.RegionIndex(name); idx >= 0 {
		return a.Regions[idx]
	}
	return nil
}

func (a *Atlas) RegionIndex(name string) int {
	for i, item := range a.Regions {
		if item.Name == name {
			return i
		}
	}
	return -1
}

type options struct {
	log zerolog.Logger
}

type Option func(*options)

func WithLogger(log zerolog.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

type parser struct {
	lines []string
	line  int
	log   zerolog.Logger
}

func (p *parser) fail(field string, err error) error {
	return &skeleton.DecodeError{Offset: p.line, Field: field, Err: err}
}

// next returns the next trimmed line, ok is false at the end of the text.
func (p *parser) next() (string, bool) {
	if p.line >= len(p.lines) {
		return "", false
	}
	p.line++
	return strings.TrimSpace(p.lines[p.line-1]), true
}

func (p *parser) peek() string {
	if p.line >= len(p.lines) {
		return ""
	}
	return strings.TrimSpace(p.lines[p.line])
}

// entry splits `key: v1, v2` into its key and trimmed values.
func entry(line string) (string, []string, bool) {
	idx := strings.IndexByte(line, ':')
	if idx < 0 {
		return "", nil, false
	}
	items := strings.Split(line[idx+1:], ",")
	res := make([]string, 0, len(items))
	for _, item := range items {
		res = append(res, strings.TrimSpace(item))
	}
	return strings.TrimSpace(line[:idx]), res, true
}

func (p *parser) ints(key string, values []string, count int) ([]int, error) {
	if len(values) != count {
		return nil, p.fail(key, skeleton.ErrInvalidValue)
	}
	res := make([]int, 0, count)
	for _, item := range values {
		val, err := strconv.Atoi(item)
		if err != nil {
			return nil, p.fail(key, fmt.Errorf("%w: %v", skeleton.ErrInvalidValue, err))
		}
		res = append(res, val)
	}
	return res, nil
}

func (p *parser) boolean(key string, values []string) (bool, error) {
	if len(values) != 1 {
		return false, p.fail(key, skeleton.ErrInvalidValue)
	}
	val, err := strconv.ParseBool(values[0])
	if err != nil {
		return false, p.fail(key, fmt.Errorf("%w: %v", skeleton.ErrInvalidValue, err))
	}
	return val, nil
}

// Parse reads an atlas. Malformed values fail with a *skeleton.DecodeError
// whose Offset is the 1 based line number.
func Parse(text string, opts ...Option) (*Atlas, error) {
	o := options{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	p := &parser{lines: strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n"), log: o.log}
	res := &Atlas{}
	var page *Page
	for {
		line, ok := p.next()
		if !ok {
			break
		}
		if line == "" {
			page = nil
			continue
		}
		if page == nil {
			if _, _, isEntry := entry(line); isEntry {
				return nil, p.fail("page name", skeleton.ErrInvalidValue)
			}
			var err error
			if page, err = p.parsePage(line); err != nil {
				return nil, err
			}
			res.Pages = append(res.Pages, page)
			continue
		}
		region, err := p.parseRegion(line, len(res.Pages)-1)
		if err != nil {
			return nil, err
		}
		res.Regions = append(res.Regions, region)
	}
	o.log.Debug().Int("pages", len(res.Pages)).Int("regions", len(res.Regions)).Msg("atlas decoded")
	return res, nil
}

func (p *parser) parsePage(name string) (*Page, error) {
	res := &Page{Name: name, Format: "RGBA8888", MinFilter: "Nearest", MagFilter: "Nearest", Repeat: "none"}
	for {
		key, values, ok := entry(p.peek())
		if !ok {
			return res, nil
		}
		p.line++
		switch key {
		case "size":
			size, err := p.ints(key, values, 2)
			if err != nil {
				return nil, err
			}
			res.Width, res.Height = size[0], size[1]
		case "format":
			res.Format = values[0]
		case "filter":
			if len(values) != 2 {
				return nil, p.fail(key, skeleton.ErrInvalidValue)
			}
			res.MinFilter, res.MagFilter = values[0], values[1]
		case "repeat":
			switch values[0] {
			case "x", "y", "xy", "none":
				res.Repeat = values[0]
			default:
				return nil, p.fail(key, skeleton.ErrInvalidValue)
			}
		case "pma":
			pma, err := p.boolean(key, values)
			if err != nil {
				return nil, err
			}
			res.PMA = pma
		default:
			p.log.Warn().Int("line", p.line).Str("key", key).Msg("unknown atlas page key")
		}
	}
}

func (p *parser) parseRegion(name string, page int) (*Region, error) {
	res := &Region{Page: page, Name: name, Index: -1}
	for {
		key, values, ok := entry(p.peek())
		if !ok {
			break
		}
		p.line++
		var err error
		switch key {
		case "xy": // 旧版本格式
			err = p.pair(key, values, &res.X, &res.Y)
		case "size":
			err = p.pair(key, values, &res.Width, &res.Height)
		case "bounds":
			err = p.quad(key, values, &res.X, &res.Y, &res.Width, &res.Height)
		case "offset":
			err = p.pair(key, values, &res.OffsetX, &res.OffsetY)
		case "orig":
			err = p.pair(key, values, &res.OriginalWidth, &res.OriginalHeight)
		case "offsets":
			err = p.quad(key, values, &res.OffsetX, &res.OffsetY, &res.OriginalWidth, &res.OriginalHeight)
		case "rotate":
			res.Degrees, err = p.degrees(key, values)
		case "index":
			var index []int
			if index, err = p.ints(key, values, 1); err == nil {
				res.Index = index[0]
			}
		case "split":
			res.Split, err = p.four(key, values)
		case "pad":
			res.Pad, err = p.four(key, values)
		default:
			p.log.Warn().Int("line", p.line).Str("key", key).Msg("unknown atlas region key")
		}
		if err != nil {
			return nil, err
		}
	}
	if res.OriginalWidth == 0 && res.OriginalHeight == 0 {
		res.OriginalWidth, res.OriginalHeight = res.Width, res.Height
	}
	res.Rotate = res.Degrees == 90
	return res, nil
}

func (p *parser) pair(key string, values []string, a, b *int) error {
	res, err := p.ints(key, values, 2)
	if err != nil {
		return err
	}
	*a, *b = res[0], res[1]
	return nil
}

func (p *parser) quad(key string, values []string, a, b, c, d *int) error {
	res, err := p.ints(key, values, 4)
	if err != nil {
		return err
	}
	*a, *b, *c, *d = res[0], res[1], res[2], res[3]
	return nil
}

func (p *parser) four(key string, values []string) (*[4]int, error) {
	res := [4]int{}
	if err := p.quad(key, values, &res[0], &res[1], &res[2], &res[3]); err != nil {
		return nil, err
	}
	return &res, nil
}

// degrees reads `true` (90), `false` (0) or an explicit angle.
func (p *parser) degrees(key string, values []string) (int, error) {
	if len(values) != 1 {
		return 0, p.fail(key, skeleton.ErrInvalidValue)
	}
	switch values[0] {
	case "true":
		return 90, nil
	case "false":
		return 0, nil
	}
	res, err := p.ints(key, values, 1)
	if err != nil {
		return 0, err
	}
	if res[0] < 0 || res[0] >= 360 {
		return 0, p.fail(key, skeleton.ErrInvalidValue)
	}
	return res[0], nil
}
