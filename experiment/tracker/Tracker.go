// Package tracker implements Trackers, which track and save data
// generated while training an agent
package tracker

import (
	"encoding/gob"
	"log"
	"os"

	ts "github.com/HuangHaoyu1997/deep-reinforcement-learning-gym/timestep"
)

// Interface Tracker keeps track of training data and saves the data
// after training has finished
type Tracker interface {
	Track(t ts.TimeStep)
	Save()
}

// LoadData loads and returns the data saved by a Tracker
func LoadData(filename string) []float64 {
	file, err := os.Open(filename)
	if err != nil {
		log.Fatalf("could not open data file: %v", err)
	}
	defer file.Close()

	dec := gob.NewDecoder(file)
	var data []float64

	err = dec.Decode(&data)
	if err != nil {
		log.Fatalf("could not decode data: %v", err)
	}

	return data
}
