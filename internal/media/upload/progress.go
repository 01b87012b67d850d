package upload

import "bytes"

// progressReader reports body consumption as a synthetic 0..90 progress
// ramp. The remaining 10 points belong to the confirmed write and metadata
// record; the ramp must never claim completion the transport has not
// confirmed.
type progressReader struct {
	r     *bytes.Reader
	total int64
	read  int64
	fn    func(pct int)
}

func newProgressReader(data []byte, fn func(pct int)) *progressReader {
	return &progressReader{
		r:     bytes.NewReader(data),
		total: int64(len(data)),
		fn:    fn,
	}
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.read += int64(n)
		if p.total > 0 && p.fn != nil {
			pct := int(float64(p.read) / float64(p.total) * 90)
			if pct > 90 {
				pct = 90
			}
			p.fn(pct)
		}
	}
	return n, err
}
