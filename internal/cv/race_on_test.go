//go:build race

package cv

const raceEnabled = true
