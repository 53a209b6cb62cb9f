package preview

import (
	"bytes"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var disableConfigDir sync.Once

// PDFCPUExtractor extracts page one with pdfcpu.
type PDFCPUExtractor struct{}

func (PDFCPUExtractor) FirstPage(data []byte) ([]byte, int, error) {
	disableConfigDir.Do(api.DisableConfigDir)

	conf := pdfmodel.NewDefaultConfiguration()
	conf.ValidationMode = pdfmodel.ValidationRelaxed

	pages, err := api.PageCount(bytes.NewReader(data), conf)
	if err != nil {
		return nil, 0, err
	}

	var out bytes.Buffer
	if err := api.Trim(bytes.NewReader(data), &out, []string{"1"}, conf); err != nil {
		return nil, pages, err
	}
	return out.Bytes(), pages, nil
}
