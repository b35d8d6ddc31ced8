package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "0 B", formatSize(0))
	assert.Equal(t, "512 B", formatSize(512))
	assert.Equal(t, "1.0 KB", formatSize(1024))
	assert.Equal(t, "1.5 MB", formatSize(1536*1024))
	assert.Equal(t, "2.0 GB", formatSize(2*1024*1024*1024))
}

func TestFormatTime(t *testing.T) {
	now := time.Now()

	thisYear := time.Date(now.Year(), 3, 5, 14, 30, 0, 0, time.Local)
	assert.Equal(t, thisYear.Format("Jan _2 15:04"), formatTime(thisYear))

	lastYear := time.Date(now.Year()-1, 3, 5, 14, 30, 0, 0, time.Local)
	assert.Equal(t, lastYear.Format("Jan _2  2006"), formatTime(lastYear))
}

func TestPrintTable(t *testing.T) {
	var buf bytes.Buffer

	printTable(&buf, []string{"NAME", "SIZE"}, [][]string{
		{"q1.xlsx", "1.0 KB"},
		{"quarterly-summary.xlsx", "12.5 MB"},
	})

	out := buf.String()
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "quarterly-summary.xlsx  12.5 MB")

	lines := bytes.Split(buf.Bytes(), []byte("\n"))
	assert.Len(t, lines, 4) // header + 2 rows + trailing newline
}
