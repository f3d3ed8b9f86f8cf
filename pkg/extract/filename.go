package extract

import (
	"regexp"
	"strings"
	"time"
)

// filenamePatterns match names written by phone cameras and messengers. The
// first submatch is parsed with layout after replacing "_" with " ".
var filenamePatterns = []struct {
	re     *regexp.Regexp
	layout string
}{
	{regexp.MustCompile(`(?i)^(?:IMG|VID)_(\d{8}_\d{6})`), "20060102 150405"},
	{regexp.MustCompile(`(?i)^PXL_(\d{8}_\d{6})\d{3,}`), "20060102 150405"},
	{regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}[ _]\d{2}\.\d{2}\.\d{2})`), "2006-01-02 15.04.05"},
	{regexp.MustCompile(`(?i)^IMG-(\d{8})-WA\d+`), "20060102"},
	{regexp.MustCompile(`(?i)^Screenshot_(\d{4}-\d{2}-\d{2}-\d{2}-\d{2}-\d{2})`), "2006-01-02-15-04-05"},
}

func filenameTime(name string, loc *time.Location) (time.Time, bool) {
	for _, p := range filenamePatterns {
		m := p.re.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		tm, err := time.ParseInLocation(p.layout, strings.ReplaceAll(m[1], "_", " "), loc)
		if err != nil {
			return time.Time{}, false
		}
		return tm, true
	}
	return time.Time{}, false
}
