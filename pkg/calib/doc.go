// Package calib calibrates the magnetometer against travel.
//
// A still baseline of the magnetometer is taken first. The detector then looks for short windows
// where the sensor rests and then moves fast enough to integrate a displacement from the
// accelerometer, pairing that displacement with the magnetometer trace. Separately, a polynomial
// maps the projected magnetometer reading to travel measured by another sensor.
package calib
