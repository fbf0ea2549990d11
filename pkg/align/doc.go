// Package align estimates the rotation between two accelerometers mounted on the same body.
//
// Both sensors are chunked in time. Pairs of chunks where both sensors are still and agree on the
// gravity magnitude are kept, near-colinear pairs are dropped, and the rotation mapping the second
// sensor frame onto the first is solved from the remaining gravity directions with a weighted
// Kabsch fit.
package align
