package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"ndresample/internal/models"
	"ndresample/pkg/cluster"
	"ndresample/pkg/distance"
)

// resampleArgs is the positional form of a resampling run.
type resampleArgs struct {
	input, output string
	background    bool
	params        cluster.ResampleParams
}

type argList struct {
	args []string
	pos  int
}

func (a *argList) left() int { return len(a.args) - a.pos }

func (a *argList) next(name string) (string, error) {
	if a.pos >= len(a.args) {
		return "", fmt.Errorf("missing %s", name)
	}
	s := a.args[a.pos]
	a.pos++
	return s, nil
}

func (a *argList) float(name string) (float64, error) {
	s, err := a.next(name)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("bad %s %q", name, s)
	}
	return v, nil
}

func (a *argList) int(name string) (int, error) {
	s, err := a.next(name)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("bad %s %q", name, s)
	}
	return v, nil
}

func (a *argList) mode() (bool, error) {
	m, err := a.int("mode")
	if err != nil {
		return false, err
	}
	if m != 0 && m != 1 {
		return false, fmt.Errorf("mode must be 0 (foreground) or 1 (background), got %d", m)
	}
	return m == 1, nil
}

func (a *argList) degree(name string) (models.Degree, error) {
	v, err := a.int(name)
	if err != nil {
		return 0, err
	}
	return models.ParseDegree(v)
}

// expandArgFile handles the short form <input> <output> <argument file>,
// where the file holds the remaining arguments one per line. Other
// argument lists are returned as they are.
func expandArgFile(args []string) ([]string, error) {
	if len(args) != 3 {
		return args, nil
	}
	f, err := os.Open(args[2])
	if err != nil {
		return nil, fmt.Errorf("cannot open argument file: %w", err)
	}
	defer f.Close()

	out := args[:2:2]
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			out = append(out, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("error reading argument file: %w", err)
	}
	return out, nil
}

// parseResampleArgs reads
//
//	<input> <output> <mode> <p1> <p2> <p3> [<p4>] <distanceMethod>
//	<degX> <degY> <degZ> [<degT> <volFirst> <volLast>] [<sliceFirst> <sliceLast>]...
//
// The bracketed 4D arguments are present only when is4D reports true for
// the input.
func parseResampleArgs(args []string, is4D func(path string) (bool, error)) (*resampleArgs, error) {
	a := &argList{args: args}
	r := &resampleArgs{}
	var err error
	if r.input, err = a.next("input"); err != nil {
		return nil, err
	}
	if r.output, err = a.next("output"); err != nil {
		return nil, err
	}
	if r.background, err = a.mode(); err != nil {
		return nil, err
	}
	four, err := is4D(r.input)
	if err != nil {
		return nil, err
	}

	p := &r.params
	for _, f := range []*float64{&p.Pitch.X, &p.Pitch.Y, &p.Pitch.Z} {
		if *f, err = a.float("pixel size"); err != nil {
			return nil, err
		}
	}
	if four {
		if p.Pitch.T, err = a.float("volume spacing"); err != nil {
			return nil, err
		}
	}

	method, err := a.int("distance method")
	if err != nil {
		return nil, err
	}
	switch method {
	case 0:
		p.Plan.Distance = models.CityBlock
	case 1:
		p.Plan.Distance = models.Chamfer
	default:
		return nil, fmt.Errorf("distance method must be 0 (city block) or 1 (chamfer), got %d", method)
	}

	axes := []string{"x degree", "y degree", "z degree"}
	if four {
		axes = append(axes, "t degree")
	}
	for i, name := range axes {
		if p.Plan.Degree[i], err = a.degree(name); err != nil {
			return nil, err
		}
	}
	if !four {
		p.Plan.Degree[models.AxisT] = models.Nearest
	}

	if four && a.left() >= 2 {
		var vr [2]int
		if vr[0], err = a.int("first volume"); err != nil {
			return nil, err
		}
		if vr[1], err = a.int("last volume"); err != nil {
			return nil, err
		}
		p.Volumes = &vr
	}
	for a.left() >= 2 {
		var sr [2]float64
		if sr[0], err = a.float("first slice"); err != nil {
			return nil, err
		}
		if sr[1], err = a.float("last slice"); err != nil {
			return nil, err
		}
		p.SliceRanges = append(p.SliceRanges, sr)
	}
	if a.left() != 0 {
		return nil, fmt.Errorf("unexpected argument %q", args[a.pos])
	}
	return r, nil
}

// distanceArgs is the positional form of a distance map run.
type distanceArgs struct {
	input, output string
	background    bool
	kind          distance.Kind
}

// parseDistanceArgs reads <input> <output> <mode> <distanceType>.
func parseDistanceArgs(args []string) (*distanceArgs, error) {
	a := &argList{args: args}
	d := &distanceArgs{}
	var err error
	if d.input, err = a.next("input"); err != nil {
		return nil, err
	}
	if d.output, err = a.next("output"); err != nil {
		return nil, err
	}
	if d.background, err = a.mode(); err != nil {
		return nil, err
	}
	kind, err := a.int("distance type")
	if err != nil {
		return nil, err
	}
	if kind < int(distance.BackgroundToForeground) || kind > int(distance.DoubleResolution) {
		return nil, fmt.Errorf("distance type must be 0..3, got %d", kind)
	}
	d.kind = distance.Kind(kind)
	if a.left() != 0 {
		return nil, fmt.Errorf("unexpected argument %q", args[a.pos])
	}
	return d, nil
}
