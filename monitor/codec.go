package monitor

import (
	"encoding/binary"
	"fmt"
	"io"
)

// request is one monitor command: a single-letter op code and an op-specific
// body (empty for every current op, the length prefix keeps the frame
// extensible).
type request struct {
	opCode string
	body   []byte
}

func readNBytes(reader io.Reader, N int) ([]byte, error) {

	data := make([]byte, N)

	if _, err := io.ReadFull(reader, data); err != nil {
		return nil, err
	}

	return data, nil
}

func readRequest(reader io.Reader) (*request, error) {

	opCodeByte, err := readNBytes(reader, 1)

	if err != nil {
		return nil, err
	}

	bodyLengthBytes, err := readNBytes(reader, 4)

	if err != nil {
		return nil, err
	}

	bodyLength := binary.LittleEndian.Uint32(bodyLengthBytes)

	body, err := readNBytes(reader, int(bodyLength))

	if err != nil {
		return nil, err
	}

	return &request{opCode: string(opCodeByte), body: body}, nil
}

func encodeOKResponse() []byte {

	response := make([]byte, 1)

	response[0] = byte('O')

	return response
}

// encodeStatsResponse lays out the four counters as little-endian uint64s
// after the OK op code.
func encodeStatsResponse(stats VMStats) []byte {

	response := make([]byte, 1+8*4)

	pointer := 0
	response[pointer] = byte('O')
	pointer++

	binary.LittleEndian.PutUint64(response[pointer:pointer+8], uint64(stats.Tracked))
	pointer += 8

	binary.LittleEndian.PutUint64(response[pointer:pointer+8], uint64(stats.Pinned))
	pointer += 8

	binary.LittleEndian.PutUint64(response[pointer:pointer+8], stats.Evictions)
	pointer += 8

	binary.LittleEndian.PutUint64(response[pointer:pointer+8], uint64(stats.FreeFrames))

	return response
}

func encodeErrorResponse(err error) []byte {

	message := []byte(err.Error())

	response := make([]byte, 1+4+len(message))

	pointer := 0
	response[pointer] = byte('E')
	pointer++

	binary.LittleEndian.PutUint32(response[pointer:pointer+4], uint32(len(message)))
	pointer += 4

	copy(response[pointer:], message)

	return response
}

func encodeShutdownMessage() []byte {

	response := make([]byte, 1)

	response[0] = byte('S')

	return response
}

func decodeStatsResponse(data []byte) (VMStats, error) {

	if len(data) != 8*4 {
		return VMStats{}, fmt.Errorf("stats response body must be %d bytes, got %d", 8*4, len(data))
	}

	pointer := 0

	tracked := binary.LittleEndian.Uint64(data[pointer : pointer+8])
	pointer += 8

	pinned := binary.LittleEndian.Uint64(data[pointer : pointer+8])
	pointer += 8

	evictions := binary.LittleEndian.Uint64(data[pointer : pointer+8])
	pointer += 8

	freeFrames := binary.LittleEndian.Uint64(data[pointer : pointer+8])

	return VMStats{
		Tracked:    int(tracked),
		Pinned:     int(pinned),
		Evictions:  evictions,
		FreeFrames: int(freeFrames),
	}, nil
}
