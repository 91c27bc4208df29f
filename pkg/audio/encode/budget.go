// ABOUTME: Byte budget estimate for encoded output
// ABOUTME: Derived from the nominal bitrate the codec reports
package encode

// estimate returns a planning estimate of the encoded size of numSamples
// interleaved samples. VBR output varies with the signal; this is not a bound.
func (s *session) estimate(numSamples int) (int, error) {
	p := s.params
	if p.nominalBitrate <= 0 || p.sampleRate <= 0 || p.channels <= 0 {
		return 0, ErrInconsistentConfig
	}

	// Average number of bits used per sample, per channel
	bitWidth := p.nominalBitrate / p.sampleRate / p.channels

	return (numSamples*bitWidth + 7) / 8, nil
}
