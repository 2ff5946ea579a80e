package mocks

import (
	"github.com/user/scrubview/pkg/ports"
)

// Demuxer is a mock implementation of ports.ContainerDemuxer. Tests
// script its behavior by firing Ready and Samples against the installed
// handlers, typically from AppendChunkFunc or EndOfStreamFunc.
type Demuxer struct {
	AppendChunkFunc func(d *Demuxer, data []byte, offset int64) error
	EndOfStreamFunc func(d *Demuxer) error

	Appended [][]byte
	Ended    bool

	onReady   func(ports.TrackInfo) error
	onSamples func([]ports.ContainerSample) error
}

func (m *Demuxer) SetHandlers(onReady func(ports.TrackInfo) error, onSamples func([]ports.ContainerSample) error) {
	m.onReady = onReady
	m.onSamples = onSamples
}

func (m *Demuxer) AppendChunk(data []byte, offset int64) error {
	m.Appended = append(m.Appended, data)
	if m.AppendChunkFunc != nil {
		return m.AppendChunkFunc(m, data, offset)
	}
	return nil
}

func (m *Demuxer) EndOfStream() error {
	m.Ended = true
	if m.EndOfStreamFunc != nil {
		return m.EndOfStreamFunc(m)
	}
	return nil
}

// Ready fires the installed ready handler.
func (m *Demuxer) Ready(info ports.TrackInfo) error {
	return m.onReady(info)
}

// Samples fires the installed samples handler.
func (m *Demuxer) Samples(samples []ports.ContainerSample) error {
	return m.onSamples(samples)
}

var _ ports.ContainerDemuxer = (*Demuxer)(nil)
