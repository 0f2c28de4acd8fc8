package photpatch

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/forcepho-go/kernel/internal/linalg"
)

// Magic numbers and a version tag guard every flat binary encoding
// against being fed the wrong record type, the same way
// model.Graph.Serialize prefixes its payload with "SULB".
const (
	sourceMagic   uint32 = 0x534F5243 // "SORC"
	responseMagic uint32 = 0x52455350 // "RESP"
	patchMagic    uint32 = 0x50415443 // "PATC"

	formatVersion uint16 = 1
)

// MarshalBinary encodes a Source as the fixed-layout record described
// in §6: ra, dec, q, pa, sersic_n, rh, then the MaxBands flux array and
// the three MaxRadii arrays, in declaration order.
func (s *Source) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	fields := []any{
		sourceMagic, formatVersion,
		s.RA, s.Dec, s.Q, s.PA, s.SersicN, s.Rh,
		s.Fluxes,
		s.MixtureAmplitudes, s.DAmplitudeDNSersic, s.DAmplitudeDRh,
	}
	for _, f := range fields {
		if err := binary.Write(&buf, binary.LittleEndian, f); err != nil {
			return nil, fmt.Errorf("photpatch: encode source: %w", err)
		}
	}
	return buf.Bytes(), nil
}

// SourceRecordSize is the fixed byte length of one Source's flat binary
// encoding, letting callers decode a concatenated sequence of sources
// (a serialized Proposal) without a length prefix.
func SourceRecordSize() int {
	return 4 + 2 + 6*4 + MaxBands*4 + 3*MaxRadii*4
}

// UnmarshalBinary decodes a Source previously written by MarshalBinary.
func (s *Source) UnmarshalBinary(data []byte) error {
	r := bytes.NewReader(data)
	var magic uint32
	var version uint16
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return fmt.Errorf("photpatch: decode source header: %w", err)
	}
	if magic != sourceMagic {
		return fmt.Errorf("photpatch: decode source: bad magic %#x", magic)
	}
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return fmt.Errorf("photpatch: decode source header: %w", err)
	}
	if version != formatVersion {
		return fmt.Errorf("photpatch: decode source: unsupported version %d", version)
	}
	fields := []any{
		&s.RA, &s.Dec, &s.Q, &s.PA, &s.SersicN, &s.Rh,
		&s.Fluxes,
		&s.MixtureAmplitudes, &s.DAmplitudeDNSersic, &s.DAmplitudeDRh,
	}
	for _, f := range fields {
		if err := binary.Read(r, binary.LittleEndian, f); err != nil {
			return fmt.Errorf("photpatch: decode source: %w", err)
		}
	}
	return nil
}

// MarshalBinary encodes a Response as a magic/version/length header,
// then one chi-square float followed by n_active*NParams gradient
// floats, row order [source][param].
func (r *Response) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, responseMagic); err != nil {
		return nil, fmt.Errorf("photpatch: encode response: %w", err)
	}
	if err := binary.Write(&buf, binary.LittleEndian, formatVersion); err != nil {
		return nil, fmt.Errorf("photpatch: encode response: %w", err)
	}
	if err := binary.Write(&buf, binary.LittleEndian, uint32(len(r.DChi2DParam))); err != nil {
		return nil, fmt.Errorf("photpatch: encode response: %w", err)
	}
	if err := binary.Write(&buf, binary.LittleEndian, r.Chi2); err != nil {
		return nil, fmt.Errorf("photpatch: encode response: %w", err)
	}
	if err := binary.Write(&buf, binary.LittleEndian, r.DChi2DParam); err != nil {
		return nil, fmt.Errorf("photpatch: encode response: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary decodes a Response previously written by MarshalBinary.
func (r *Response) UnmarshalBinary(data []byte) error {
	br := bytes.NewReader(data)
	var magic uint32
	var version uint16
	var n uint32
	if err := binary.Read(br, binary.LittleEndian, &magic); err != nil {
		return fmt.Errorf("photpatch: decode response header: %w", err)
	}
	if magic != responseMagic {
		return fmt.Errorf("photpatch: decode response: bad magic %#x", magic)
	}
	if err := binary.Read(br, binary.LittleEndian, &version); err != nil {
		return fmt.Errorf("photpatch: decode response header: %w", err)
	}
	if version != formatVersion {
		return fmt.Errorf("photpatch: decode response: unsupported version %d", version)
	}
	if err := binary.Read(br, binary.LittleEndian, &n); err != nil {
		return fmt.Errorf("photpatch: decode response header: %w", err)
	}
	if err := binary.Read(br, binary.LittleEndian, &r.Chi2); err != nil {
		return fmt.Errorf("photpatch: decode response: %w", err)
	}
	r.DChi2DParam = make([]float32, n)
	if err := binary.Read(br, binary.LittleEndian, r.DChi2DParam); err != nil {
		return fmt.Errorf("photpatch: decode response: %w", err)
	}
	return nil
}

// MarshalBinary encodes a Patch as one flat buffer, in this order: a
// small fixed header, the per-band index arrays, the per-exposure
// index arrays with each exposure's crpix and crval, the
// per-(exposure,source) D and CW Jacobians, the flat pixel arrays,
// rad2, and last the PSF-Gaussian array. The pixel arrays and the
// PSF-Gaussian array do not come before D and CW.
func (p *Patch) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	w := func(v any) error { return binary.Write(&buf, binary.LittleEndian, v) }

	nExposures := len(p.ExposureStart)
	nPixels := len(p.XPix)

	header := []any{
		patchMagic, formatVersion,
		int32(p.NBands), int32(p.NSources), int32(p.NRadii),
		int32(nExposures), int32(nPixels), int32(len(p.PSFGauss)),
	}
	for _, v := range header {
		if err := w(v); err != nil {
			return nil, fmt.Errorf("photpatch: encode patch header: %w", err)
		}
	}

	for _, v := range []any{p.BandStart, p.BandN, p.NPSFPerSource} {
		if err := w(v); err != nil {
			return nil, fmt.Errorf("photpatch: encode patch band arrays: %w", err)
		}
	}

	for _, v := range []any{p.ExposureStart, p.ExposureN, p.PSFGaussStart, p.Gain} {
		if err := w(v); err != nil {
			return nil, fmt.Errorf("photpatch: encode patch exposure arrays: %w", err)
		}
	}
	for e := 0; e < nExposures; e++ {
		if err := w(p.CRPix[e]); err != nil {
			return nil, fmt.Errorf("photpatch: encode crpix: %w", err)
		}
		if err := w(p.CRVal[e]); err != nil {
			return nil, fmt.Errorf("photpatch: encode crval: %w", err)
		}
	}

	for e := 0; e < nExposures; e++ {
		for s := 0; s < p.NSources; s++ {
			if err := writeMat2(&buf, p.D[e][s]); err != nil {
				return nil, fmt.Errorf("photpatch: encode D: %w", err)
			}
			if err := writeMat2(&buf, p.CW[e][s]); err != nil {
				return nil, fmt.Errorf("photpatch: encode CW: %w", err)
			}
		}
	}

	for _, v := range []any{p.XPix, p.YPix, p.Data, p.IErr, p.Residual} {
		if err := w(v); err != nil {
			return nil, fmt.Errorf("photpatch: encode pixel arrays: %w", err)
		}
	}

	if err := w(p.Rad2); err != nil {
		return nil, fmt.Errorf("photpatch: encode rad2: %w", err)
	}

	for i := range p.PSFGauss {
		g := &p.PSFGauss[i]
		fields := []any{g.Amp, g.XCen, g.YCen, g.Cxx, g.Cyy, g.Cxy, g.SersicRadiusBin}
		for _, f := range fields {
			if err := w(f); err != nil {
				return nil, fmt.Errorf("photpatch: encode psfgauss: %w", err)
			}
		}
	}

	return buf.Bytes(), nil
}

func writeMat2(w io.Writer, m linalg.Mat2) error {
	return binary.Write(w, binary.LittleEndian, [4]float32{m.V11, m.V12, m.V21, m.V22})
}

func readMat2(r io.Reader) (linalg.Mat2, error) {
	var v [4]float32
	if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
		return linalg.Mat2{}, err
	}
	return linalg.New(v[0], v[1], v[2], v[3]), nil
}

// UnmarshalBinary decodes a Patch previously written by MarshalBinary.
func (p *Patch) UnmarshalBinary(data []byte) error {
	r := bytes.NewReader(data)
	read := func(v any) error { return binary.Read(r, binary.LittleEndian, v) }

	var magic uint32
	var version uint16
	var nBands, nSources, nRadii, nExposures, nPixels, nPSFGauss int32
	if err := read(&magic); err != nil {
		return fmt.Errorf("photpatch: decode patch header: %w", err)
	}
	if magic != patchMagic {
		return fmt.Errorf("photpatch: decode patch: bad magic %#x", magic)
	}
	if err := read(&version); err != nil {
		return fmt.Errorf("photpatch: decode patch header: %w", err)
	}
	if version != formatVersion {
		return fmt.Errorf("photpatch: decode patch: unsupported version %d", version)
	}
	for _, v := range []any{&nBands, &nSources, &nRadii, &nExposures, &nPixels, &nPSFGauss} {
		if err := read(v); err != nil {
			return fmt.Errorf("photpatch: decode patch header: %w", err)
		}
	}
	p.NBands, p.NSources, p.NRadii = int(nBands), int(nSources), int(nRadii)

	p.BandStart = make([]int32, nBands)
	p.BandN = make([]int32, nBands)
	p.NPSFPerSource = make([]int32, nBands)
	for _, v := range []any{p.BandStart, p.BandN, p.NPSFPerSource} {
		if err := read(v); err != nil {
			return fmt.Errorf("photpatch: decode patch band arrays: %w", err)
		}
	}

	p.ExposureStart = make([]int32, nExposures)
	p.ExposureN = make([]int32, nExposures)
	p.PSFGaussStart = make([]int32, nExposures)
	p.Gain = make([]float32, nExposures)
	for _, v := range []any{p.ExposureStart, p.ExposureN, p.PSFGaussStart, p.Gain} {
		if err := read(v); err != nil {
			return fmt.Errorf("photpatch: decode patch exposure arrays: %w", err)
		}
	}

	p.CRPix = make([][2]float32, nExposures)
	p.CRVal = make([][2]float32, nExposures)
	for e := 0; e < int(nExposures); e++ {
		if err := read(&p.CRPix[e]); err != nil {
			return fmt.Errorf("photpatch: decode crpix: %w", err)
		}
		if err := read(&p.CRVal[e]); err != nil {
			return fmt.Errorf("photpatch: decode crval: %w", err)
		}
	}

	p.D = make([][]linalg.Mat2, nExposures)
	p.CW = make([][]linalg.Mat2, nExposures)
	for e := 0; e < int(nExposures); e++ {
		p.D[e] = make([]linalg.Mat2, nSources)
		p.CW[e] = make([]linalg.Mat2, nSources)
		for s := 0; s < int(nSources); s++ {
			d, err := readMat2(r)
			if err != nil {
				return fmt.Errorf("photpatch: decode D: %w", err)
			}
			p.D[e][s] = d
			cw, err := readMat2(r)
			if err != nil {
				return fmt.Errorf("photpatch: decode CW: %w", err)
			}
			p.CW[e][s] = cw
		}
	}

	p.XPix = make([]float32, nPixels)
	p.YPix = make([]float32, nPixels)
	p.Data = make([]float32, nPixels)
	p.IErr = make([]float32, nPixels)
	p.Residual = make([]float32, nPixels)
	for _, v := range []any{p.XPix, p.YPix, p.Data, p.IErr, p.Residual} {
		if err := read(v); err != nil {
			return fmt.Errorf("photpatch: decode pixel arrays: %w", err)
		}
	}

	p.Rad2 = make([]float32, nRadii)
	if err := read(p.Rad2); err != nil {
		return fmt.Errorf("photpatch: decode rad2: %w", err)
	}

	p.PSFGauss = make([]PSFSourceGaussian, nPSFGauss)
	for i := range p.PSFGauss {
		g := &p.PSFGauss[i]
		fields := []any{&g.Amp, &g.XCen, &g.YCen, &g.Cxx, &g.Cyy, &g.Cxy, &g.SersicRadiusBin}
		for _, f := range fields {
			if err := read(f); err != nil {
				return fmt.Errorf("photpatch: decode psfgauss: %w", err)
			}
		}
	}

	return nil
}
