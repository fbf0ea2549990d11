// Package travel turns aligned accelerometer and angle-sensor data into suspension travel.
//
// The accelerometer route rotates the second sensor into the first sensor's frame, subtracts the
// two, finds the dominant direction of motion and projects onto it. The angle route converts the
// linkage angle to travel with the linkage geometry.
package travel
