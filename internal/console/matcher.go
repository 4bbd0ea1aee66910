// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package console

import (
	"bytes"
	"regexp"
)

// maxMatchBuffer limits the unmatched console output kept for matching.
const maxMatchBuffer = 64 << 10

// pattern pairs a milestone with its recognition pattern.
type pattern struct {
	milestone Milestone
	re        *regexp.Regexp
}

// matcher finds milestones in the console stream.
//
// Output is accumulated across reads, so patterns split over multiple reads
// are found as well. Everything up to the end of a match is consumed, so
// each piece of output matches at most once.
type matcher struct {
	buf []byte
}

// feed appends console output. Carriage returns are dropped, so patterns
// only need to care about line feeds.
func (m *matcher) feed(data []byte) {
	m.buf = append(m.buf, bytes.ReplaceAll(data, []byte("\r"), nil)...)

	if excess := len(m.buf) - maxMatchBuffer; excess > 0 {
		m.buf = append(m.buf[:0], m.buf[excess:]...)
	}
}

// match returns the milestone of the pattern that matches earliest in the
// buffered output. On ties, the earlier pattern in the list wins. The output
// up to the end of the match is consumed.
//
// Unless settled is true, only complete lines are matched. A trailing partial
// line may still grow, and "$" would match at its current end.
func (m *matcher) match(patterns []pattern, settled bool) (Milestone, bool) {
	bestStart, bestEnd := -1, -1
	best := MilestoneNone

	region := m.buf
	if !settled {
		region = m.buf[:bytes.LastIndexByte(m.buf, '\n')+1]
	}

	for _, p := range patterns {
		loc := p.re.FindIndex(region)
		if loc == nil {
			continue
		}

		if bestStart == -1 || loc[0] < bestStart {
			bestStart, bestEnd = loc[0], loc[1]
			best = p.milestone
		}
	}

	if bestStart == -1 {
		return MilestoneNone, false
	}

	m.buf = append(m.buf[:0], m.buf[bestEnd:]...)

	return best, true
}

// pending returns true if the buffered output ends with a partial line.
func (m *matcher) pending() bool {
	return len(m.buf) > 0 && m.buf[len(m.buf)-1] != '\n'
}

// reset drops all buffered output.
func (m *matcher) reset() {
	m.buf = m.buf[:0]
}
