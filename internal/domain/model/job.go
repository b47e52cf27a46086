package model

import (
	"strconv"
	"time"
)

// Job asks for a full recalculation of one season.
type Job struct {
	ID       string    // unique id, for logs
	SeasonID int64     // season to recalculate
	Reason   string    // what triggered the job, e.g. "result"
	Enqueued time.Time // time the job was accepted
}

// Key identifies pending work; jobs with equal keys are interchangeable.
func (j Job) Key() string {
	return "season:" + strconv.FormatInt(j.SeasonID, 10)
}
