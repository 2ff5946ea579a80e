package ffmpegdecoder

// avccToAnnexB converts length-prefixed NALUs to Annex B start-code
// framing. lengthSize is the byte width of the length prefix (1, 2 or 4).
func avccToAnnexB(data []byte, lengthSize int) []byte {
	var result []byte
	offset := 0

	for offset+lengthSize <= len(data) {
		naluLen := 0
		for i := 0; i < lengthSize; i++ {
			naluLen = naluLen<<8 | int(data[offset+i])
		}
		offset += lengthSize

		if naluLen <= 0 || offset+naluLen > len(data) {
			break
		}

		result = append(result, 0, 0, 0, 1)
		result = append(result, data[offset:offset+naluLen]...)
		offset += naluLen
	}

	return result
}

// parameterSetPrefix renders parameter sets as an Annex B prefix to put
// in front of key frames.
func parameterSetPrefix(sps, pps [][]byte) []byte {
	var prefix []byte
	for _, nalu := range sps {
		prefix = append(prefix, 0, 0, 0, 1)
		prefix = append(prefix, nalu...)
	}
	for _, nalu := range pps {
		prefix = append(prefix, 0, 0, 0, 1)
		prefix = append(prefix, nalu...)
	}
	return prefix
}
