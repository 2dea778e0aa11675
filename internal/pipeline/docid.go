package pipeline

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// DocumentID derives the identifier that namespaces every artifact of a
// run: the source file's base name without its extension.
// "reports/TCS_AR_2024.pdf" -> "TCS_AR_2024".
func DocumentID(pdfPath string) string {
	base := filepath.Base(pdfPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// DocumentName is the parsed form of a conforming document id.
type DocumentName struct {
	Company string
	Year    int
}

// ParseDocumentID parses ids of the form Company_Name_AR_YYYY. Ids that do
// not conform are still valid pipeline inputs; parsing only gates
// conveniences like batch auto-filing.
func ParseDocumentID(id string) (DocumentName, error) {
	parts := strings.Split(id, "_AR_")
	if len(parts) != 2 {
		return DocumentName{}, fmt.Errorf("document id %q: want CompanyName_AR_YYYY", id)
	}
	year, err := strconv.Atoi(parts[1])
	if err != nil {
		return DocumentName{}, fmt.Errorf("document id %q: year %q is not numeric", id, parts[1])
	}
	if year < 2000 || year > 2030 {
		return DocumentName{}, fmt.Errorf("document id %q: year %d out of range", id, year)
	}
	company := strings.TrimSpace(strings.ReplaceAll(parts[0], "_", " "))
	if company == "" {
		return DocumentName{}, fmt.Errorf("document id %q: empty company", id)
	}
	return DocumentName{Company: company, Year: year}, nil
}

// Conforms reports whether id follows the Company_AR_YYYY convention.
func Conforms(id string) bool {
	_, err := ParseDocumentID(id)
	return err == nil
}
