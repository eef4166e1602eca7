package dirindex

import (
	"strconv"
	"strings"
)

func itoa(i int) string {
	return strconv.Itoa(i)
}

/*
	ParseInput reads the command-line shape of an input: a locator, or
	several comma-separated locators naming replicas of the same data.
*/
func ParseInput(s string) Input {
	if !strings.Contains(s, ",") {
		return URL(s)
	}
	return Group(strings.Split(s, ",")...)
}
