package jobs

import "regexp"

var urlPattern = regexp.MustCompile(`(?i)https?://[^\s]+`)

func extractURLs(line string) []string {
	return urlPattern.FindAllString(line, -1)
}
