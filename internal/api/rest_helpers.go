package api

import "strconv"

func itoa(value int) string {
	return strconv.Itoa(value)
}

func boolString(value bool) string {
	return strconv.FormatBool(value)
}
