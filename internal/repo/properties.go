package repo

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// LoadProperties parses a "key = value" properties file: blank lines
// and lines beginning with '#' are ignored, and surrounding double
// quotes on a value are stripped. It is used to build the fixed HTTP
// header map a remote tree sends with every request.
func LoadProperties(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("repo: opening properties file %s: %w", path, err)
	}
	defer f.Close()
	return parseProperties(f)
}

func parseProperties(r io.Reader) (map[string]string, error) {
	props := map[string]string{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		idx := strings.Index(line, "=")
		if idx < 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])
		value = strings.Trim(value, `"`)
		props[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("repo: reading properties: %w", err)
	}
	return props, nil
}
