// Package grid holds robot geometry: positions, headings and the search plan
// over the 5x5 target zone centred on the origin.
package grid
