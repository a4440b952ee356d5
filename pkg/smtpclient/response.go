package smtpclient

import (
	"bufio"
	"strconv"
	"strings"
)

// Response is a parsed SMTP response: one or more CRLF-terminated
// lines, the last of which has a space after its 3-digit code (spec.md
// §4.4's response parser).
type Response struct {
	Code  int
	Lines []string
}

// Text joins the response's lines for display/error purposes.
func (r Response) Text() string { return strings.Join(r.Lines, " ") }

// IsError reports whether the response's first digit is 4 or 5.
func (r Response) IsError() bool {
	return r.Code >= 400 && r.Code < 600
}

// readResponse reads one complete SMTP response from r: one or more
// lines, each beginning with a 3-digit code followed by '-'
// (continuation) or ' ' (final). The response is complete once a
// final-coded line arrives.
func readResponse(r *bufio.Reader) (Response, error) {
	var resp Response

	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return Response{}, err
		}
		line = strings.TrimRight(line, "\r\n")

		if len(line) < 4 {
			return Response{}, &malformedResponseError{line}
		}

		code, err := strconv.Atoi(line[:3])
		if err != nil {
			return Response{}, &malformedResponseError{line}
		}

		sep := line[3]
		text := line[4:]

		resp.Code = code
		resp.Lines = append(resp.Lines, text)

		if sep == ' ' {
			return resp, nil
		}
		if sep != '-' {
			return Response{}, &malformedResponseError{line}
		}
	}
}

type malformedResponseError struct{ line string }

func (e *malformedResponseError) Error() string {
	return "smtp: malformed response line: " + e.line
}
