// Package kinematics solves the inverse kinematics of a two-link planar arm.
// The solver is pure computation: it classifies a target as reachable or not
// and, when reachable, yields shoulder and elbow joint angles in degrees.
package kinematics

import (
	"math"
)

// Solution holds the joint angles, in degrees, that place the end effector
// at a requested target.
type Solution struct {
	ShoulderDeg float64
	ElbowDeg    float64
}

// Solver computes joint angles for a two-link planar arm.
type Solver struct {
	link1 float64 // shoulder-to-elbow length in meters
	link2 float64 // elbow-to-effector length in meters
}

// NewSolver creates a solver for the given link lengths in meters.
func NewSolver(link1, link2 float64) *Solver {
	return &Solver{link1: link1, link2: link2}
}

// Reachable reports whether the target (x, y) in meters lies inside the
// arm's annular workspace.
func (s *Solver) Reachable(x, y float64) bool {
	d := math.Hypot(x, y)
	return d <= s.link1+s.link2 && d >= math.Abs(s.link1-s.link2)
}

// Solve returns the joint angles reaching (x, y) with the requested elbow
// orientation. The boolean is false when the target is outside the
// workspace; no angles are produced in that case.
func (s *Solver) Solve(x, y float64, elbowUp bool) (Solution, bool) {
	if !s.Reachable(x, y) {
		return Solution{}, false
	}

	d2 := x*x + y*y

	// Law of cosines for the elbow angle.
	cosElbow := (d2 - s.link1*s.link1 - s.link2*s.link2) / (2 * s.link1 * s.link2)
	cosElbow = clamp(cosElbow, -1, 1)
	elbow := math.Acos(cosElbow)
	if elbowUp {
		elbow = -elbow
	}

	k1 := s.link1 + s.link2*math.Cos(elbow)
	k2 := s.link2 * math.Sin(elbow)
	shoulder := math.Atan2(y, x) - math.Atan2(k2, k1)

	return Solution{
		ShoulderDeg: shoulder * 180 / math.Pi,
		ElbowDeg:    elbow * 180 / math.Pi,
	}, true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
