// SPDX-License-Identifier: GPL-3.0-or-later

package logs

// CSVConfig selects the record separator and quote characters.
type CSVConfig struct {
	Delimiter byte
	Quote     byte
}

func DefaultCSVConfig() CSVConfig {
	return CSVConfig{Delimiter: ' ', Quote: '"'}
}

// splitFields splits one record into raw fields. A field that begins with
// the quote character runs to the matching quote, which must end the field;
// the surrounding quotes are stripped. Quote characters anywhere else are
// kept as-is.
func splitFields(line string, cfg CSVConfig) ([]string, error) {
	fields := make([]string, 0, 8)

	for i := 0; ; {
		if i < len(line) && line[i] == cfg.Quote {
			j := i + 1
			for j < len(line) && line[j] != cfg.Quote {
				j++
			}
			if j == len(line) {
				return nil, errUnterminatedQuote
			}
			if j+1 < len(line) && line[j+1] != cfg.Delimiter {
				return nil, errDanglingQuote
			}
			fields = append(fields, line[i+1:j])
			if j+1 == len(line) {
				return fields, nil
			}
			i = j + 2
		} else {
			j := i
			for j < len(line) && line[j] != cfg.Delimiter {
				j++
			}
			fields = append(fields, line[i:j])
			if j == len(line) {
				return fields, nil
			}
			i = j + 1
		}
		if i == len(line) {
			fields = append(fields, "")
			return fields, nil
		}
	}
}
