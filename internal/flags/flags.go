package flags

import (
	"sort"
	"strings"
)

const (
	// DoneSuffix marks an ingest job that finished writing its logs.
	DoneSuffix = ".flag.done"
	// CleanupSuffix marks an in-progress/cleanup marker removed with the job's flags.
	CleanupSuffix = ".cleanup"
)

// Counts maps a job identifier to the number of completion flags observed.
type Counts map[string]int

// Jobs returns the job identifiers in lexical order.
func (c Counts) Jobs() []string {
	jobs := make([]string, 0, len(c))
	for job := range c {
		jobs = append(jobs, job)
	}
	sort.Strings(jobs)
	return jobs
}

// Total returns the number of completion flags across all jobs.
func (c Counts) Total() int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}

// JobID strips the completion suffix from a flag filename. It reports false
// for names that are not completion flags or that leave an empty identifier.
func JobID(name string) (string, bool) {
	if !strings.HasSuffix(name, DoneSuffix) {
		return "", false
	}
	job := strings.TrimSuffix(name, DoneSuffix)
	if job == "" {
		return "", false
	}
	return job, true
}

// MarkerNames returns the flag directory entries that belong to job.
func MarkerNames(job string) []string {
	return []string{job + DoneSuffix, job + CleanupSuffix}
}
