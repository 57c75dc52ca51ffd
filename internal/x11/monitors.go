package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xinerama"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
)

// Area is a rectangle in root window coordinates.
type Area struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Monitor represents a physical display
type Monitor struct {
	ID     int
	Name   string
	Bounds Area
	// Usable is Bounds minus the space reserved by dock struts.
	Usable Area
}

// GetMonitors lists the active monitors, preferring RandR, then Xinerama,
// then the root window as a single monitor. Usable areas account for the
// struts of the given dock windows.
func (c *Connection) GetMonitors(docks []xproto.Window) ([]Monitor, error) {
	rootGeom, err := xproto.GetGeometry(c.XUtil.Conn(), xproto.Drawable(c.Root)).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get root geometry: %w", err)
	}
	rootWidth, rootHeight := int(rootGeom.Width), int(rootGeom.Height)

	var monitors []Monitor
	if c.haveRandR {
		// Errors fall through to the next source.
		monitors, _ = c.randrMonitors()
	}
	if len(monitors) == 0 && c.haveXinerama {
		monitors, _ = c.xineramaMonitors()
	}
	if len(monitors) == 0 {
		monitors = []Monitor{{
			ID:     0,
			Name:   "screen",
			Bounds: Area{Width: rootWidth, Height: rootHeight},
		}}
	}

	struts := c.dockStrutList(docks, rootWidth, rootHeight)
	for i := range monitors {
		monitors[i].Usable = UsableArea(monitors[i].Bounds, rootWidth, rootHeight, struts)
	}
	return monitors, nil
}

func (c *Connection) randrMonitors() ([]Monitor, error) {
	// Get screen resources
	resources, err := randr.GetScreenResources(c.XUtil.Conn(), c.Root).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get screen resources: %w", err)
	}

	var monitors []Monitor

	// Query each CRTC for active monitors
	for i, crtc := range resources.Crtcs {
		crtcInfo, err := randr.GetCrtcInfo(c.XUtil.Conn(), crtc, resources.ConfigTimestamp).Reply()
		if err != nil {
			continue
		}

		// Skip disabled CRTCs
		if crtcInfo.Width == 0 || crtcInfo.Height == 0 || len(crtcInfo.Outputs) == 0 {
			continue
		}

		outputName := fmt.Sprintf("crtc-%d", i)
		outputInfo, err := randr.GetOutputInfo(c.XUtil.Conn(), crtcInfo.Outputs[0], resources.ConfigTimestamp).Reply()
		if err == nil {
			outputName = string(outputInfo.Name)
		}

		monitors = append(monitors, Monitor{
			ID:   len(monitors),
			Name: outputName,
			Bounds: Area{
				X:      int(crtcInfo.X),
				Y:      int(crtcInfo.Y),
				Width:  int(crtcInfo.Width),
				Height: int(crtcInfo.Height),
			},
		})
	}
	return dedupeMirrors(monitors), nil
}

func (c *Connection) xineramaMonitors() ([]Monitor, error) {
	reply, err := xinerama.QueryScreens(c.XUtil.Conn()).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to query xinerama screens: %w", err)
	}
	monitors := make([]Monitor, 0, len(reply.ScreenInfo))
	for i, s := range reply.ScreenInfo {
		monitors = append(monitors, Monitor{
			ID:   i,
			Name: fmt.Sprintf("xinerama-%d", i),
			Bounds: Area{
				X:      int(s.XOrg),
				Y:      int(s.YOrg),
				Width:  int(s.Width),
				Height: int(s.Height),
			},
		})
	}
	return dedupeMirrors(monitors), nil
}

// dedupeMirrors drops monitors whose bounds repeat an earlier one, so cloned
// outputs tile as one.
func dedupeMirrors(monitors []Monitor) []Monitor {
	out := monitors[:0]
	seen := make(map[Area]bool, len(monitors))
	for _, m := range monitors {
		if seen[m.Bounds] {
			continue
		}
		seen[m.Bounds] = true
		m.ID = len(out)
		out = append(out, m)
	}
	return out
}

// Strut is a dock's reserved edge space in the _NET_WM_STRUT_PARTIAL form.
type Strut = ewmh.WmStrutPartial

func (c *Connection) dockStrutList(docks []xproto.Window, rootWidth, rootHeight int) []Strut {
	var out []Strut
	for _, windowID := range docks {
		if sp, err := ewmh.WmStrutPartialGet(c.XUtil, windowID); err == nil {
			out = append(out, *sp)
			continue
		}

		// Some docks only set _NET_WM_STRUT (no partial ranges).
		if s, err := ewmh.WmStrutGet(c.XUtil, windowID); err == nil {
			out = append(out, FullStrut(s.Left, s.Right, s.Top, s.Bottom, rootWidth, rootHeight))
		}
	}
	return out
}

// FullStrut expands a plain _NET_WM_STRUT into partial form spanning the
// whole root window edge.
func FullStrut(left, right, top, bottom uint, rootWidth, rootHeight int) Strut {
	return Strut{
		Left:         left,
		Right:        right,
		Top:          top,
		Bottom:       bottom,
		LeftStartY:   0,
		LeftEndY:     uint(rootHeight - 1),
		RightStartY:  0,
		RightEndY:    uint(rootHeight - 1),
		TopStartX:    0,
		TopEndX:      uint(rootWidth - 1),
		BottomStartX: 0,
		BottomEndX:   uint(rootWidth - 1),
	}
}

type dockStruts struct {
	left   int
	right  int
	top    int
	bottom int
}

// UsableArea returns bounds shrunk by every strut that overlaps it.
func UsableArea(bounds Area, rootWidth, rootHeight int, struts []Strut) Area {
	var acc dockStruts
	for i := range struts {
		updateStrutsForMonitor(bounds, rootWidth, rootHeight, &struts[i], &acc)
	}

	usable := bounds
	usable.X += acc.left
	usable.Y += acc.top
	usable.Width -= acc.left + acc.right
	usable.Height -= acc.top + acc.bottom

	if usable.Width < 1 {
		usable.Width = 1
	}
	if usable.Height < 1 {
		usable.Height = 1
	}
	return usable
}

func updateStrutsForMonitor(mon Area, rootWidth, rootHeight int, sp *Strut, acc *dockStruts) {
	monX1 := mon.X
	monY1 := mon.Y
	monX2 := mon.X + mon.Width
	monY2 := mon.Y + mon.Height

	// Top strut: y=[0,Top), x=[TopStartX,TopEndX]
	if sp.Top > 0 {
		isect := intersectionSize(monX1, monY1, monX2, monY2,
			int(sp.TopStartX), 0, int(sp.TopEndX)+1, int(sp.Top))
		if isect.overlaps() {
			acc.top = max(acc.top, isect.h)
		}
	}

	// Bottom strut: y=[rootHeight-Bottom,rootHeight), x=[BottomStartX,BottomEndX]
	if sp.Bottom > 0 {
		isect := intersectionSize(monX1, monY1, monX2, monY2,
			int(sp.BottomStartX), rootHeight-int(sp.Bottom), int(sp.BottomEndX)+1, rootHeight)
		if isect.overlaps() {
			acc.bottom = max(acc.bottom, isect.h)
		}
	}

	// Left strut: x=[0,Left), y=[LeftStartY,LeftEndY]
	if sp.Left > 0 {
		isect := intersectionSize(monX1, monY1, monX2, monY2,
			0, int(sp.LeftStartY), int(sp.Left), int(sp.LeftEndY)+1)
		if isect.overlaps() {
			acc.left = max(acc.left, isect.w)
		}
	}

	// Right strut: x=[rootWidth-Right,rootWidth), y=[RightStartY,RightEndY]
	if sp.Right > 0 {
		isect := intersectionSize(monX1, monY1, monX2, monY2,
			rootWidth-int(sp.Right), int(sp.RightStartY), rootWidth, int(sp.RightEndY)+1)
		if isect.overlaps() {
			acc.right = max(acc.right, isect.w)
		}
	}
}

type intersection struct {
	w int
	h int
}

func (i intersection) overlaps() bool {
	return i.w > 0 && i.h > 0
}

func intersectionSize(ax1, ay1, ax2, ay2, bx1, by1, bx2, by2 int) intersection {
	x1 := max(ax1, bx1)
	y1 := max(ay1, by1)
	x2 := min(ax2, bx2)
	y2 := min(ay2, by2)

	if x2 <= x1 || y2 <= y1 {
		return intersection{}
	}
	return intersection{w: x2 - x1, h: y2 - y1}
}
