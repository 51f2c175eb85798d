// Package catmull turns a sparse sequence of waypoints into a smooth,
// densified curve and parametrizes it by arc length.
/*

Smoothing uses centripetal Catmull-Rom interpolation. Knot values are spaced
by the square root of the chord length between control points (α = 1/2),
which avoids the cusps and self-intersections a uniform parametrization
produces on unevenly spaced waypoints. The primary sources are:

   On the Parameterization of Catmull-Rom Curves
   Cem Yuksel, Scott Schaefer, John Keyser
   2009 SIAM/ACM Joint Conference on Geometric and Physical Modeling

   A Recursive Evaluation Algorithm for a Class of Catmull-Rom Splines
   Phillip J. Barry, Ronald N. Goldman
   SIGGRAPH '88

Curve points are evaluated with the Barry–Goldman pyramid. Every weight and
every sum is computed in the same order on every call, so identical input
gives bit-identical output. The playback engine depends on this: preview and
video export must visit the same marker positions.

A tension factor blends each curve point with the straight chord between
its two waypoints (0 = polyline, 1 = full Catmull-Rom curve).

The densified points, together with their cumulative arc lengths, let clients
move a marker at constant visual speed:

	curve, err := catmull.NewCurve(waypoints, 16, catmull.DefaultTension)
	...
	pos := curve.PositionAtArcLength(0.5 * curve.Length())

# BSD License

# Copyright (c) Norbert Pillmayer

All rights reserved.

Please refer to the license file for more information.
*/
package catmull
