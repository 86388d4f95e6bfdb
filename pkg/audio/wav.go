// Package audio provides the small amount of PCM plumbing the interpretation
// engine needs: duration arithmetic over raw sample buffers, a RIFF/WAV
// container writer for handing segments to batch speech-to-text services, and
// a scratch store for the temporary files those uploads are built from.
//
// All audio in this system is 16-bit signed little-endian PCM, mono. The
// engine never decodes or encodes compressed audio.
package audio

import (
	"encoding/binary"
	"fmt"
	"time"
)

// BitsPerSample is fixed for the whole engine: clients stream 16-bit signed
// little-endian PCM and the WAV container declares the same.
const BitsPerSample = 16

// BytesPerSample is the byte width of one mono sample.
const BytesPerSample = BitsPerSample / 8

// wavHeaderSize is the size of the RIFF + fmt + data headers in bytes.
const wavHeaderSize = 44

// Duration returns the playback duration of sampleCount mono samples at the
// given rate. Returns 0 for a non-positive rate.
func Duration(sampleCount, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(sampleCount) * time.Second / time.Duration(sampleRate)
}

// SampleCount returns the number of mono 16-bit samples in pcm.
func SampleCount(pcm []byte) int {
	return len(pcm) / BytesPerSample
}

// EncodeWAV wraps raw 16-bit signed little-endian mono PCM in a standard
// RIFF/WAV container. The result is suitable for a multipart upload to a
// batch transcription endpoint.
func EncodeWAV(pcm []byte, sampleRate int) []byte {
	const channels = 1
	byteRate := sampleRate * channels * BytesPerSample
	blockAlign := channels * BytesPerSample
	dataSize := len(pcm)

	buf := make([]byte, wavHeaderSize+dataSize)

	// RIFF chunk descriptor
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataSize)) // file size − 8
	copy(buf[8:12], "WAVE")

	// fmt sub-chunk
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)                 // sub-chunk size (PCM)
	binary.LittleEndian.PutUint16(buf[20:22], 1)                  // audio format: PCM
	binary.LittleEndian.PutUint16(buf[22:24], channels)           // num channels
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate)) // sample rate
	binary.LittleEndian.PutUint32(buf[28:32], uint32(byteRate))   // byte rate
	binary.LittleEndian.PutUint16(buf[32:34], uint16(blockAlign)) // block align
	binary.LittleEndian.PutUint16(buf[34:36], BitsPerSample)      // bits per sample

	// data sub-chunk
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))
	copy(buf[44:], pcm)

	return buf
}

// ValidatePCM checks that pcm is a plausible 16-bit sample buffer for the
// declared sample count. An odd byte count means the stream is corrupt; a
// sample-count mismatch means the client's accounting disagrees with the
// payload it sent.
func ValidatePCM(pcm []byte, sampleCount int) error {
	if len(pcm)%BytesPerSample != 0 {
		return fmt.Errorf("audio: odd PCM byte count %d", len(pcm))
	}
	if got := SampleCount(pcm); got != sampleCount {
		return fmt.Errorf("audio: payload holds %d samples, header declares %d", got, sampleCount)
	}
	return nil
}
