package roidwell

import (
	"bufio"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
)

// LoadLabels reads a list of class labels from the given text file.  It
// should contain one label per line, blank lines and lines starting with #
// are skipped.
func LoadLabels(file string) ([]string, error) {

	// open the file
	f, err := os.Open(file)

	if err != nil {
		return nil, errors.Wrapf(err, "error opening label file %s", file)
	}

	defer f.Close()

	// create a scanner to read the file.
	scanner := bufio.NewScanner(f)

	var labels []string

	// read and trim each line
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		labels = append(labels, line)
	}

	// check for errors during scanning
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "error reading label file %s", file)
	}

	return labels, nil
}

// ParseLabels splits a comma delimited list of labels, eg: "car,truck",
// dropping empty entries
func ParseLabels(list string) []string {

	var labels []string

	for _, word := range strings.Split(list, ",") {
		trimmed := strings.TrimSpace(word)

		if trimmed != "" {
			labels = append(labels, trimmed)
		}
	}

	return labels
}
