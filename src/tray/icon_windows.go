//go:build windows

package tray

import (
	"encoding/binary"
)

// wrapIcon embeds the PNG in a single-image ICO container, which is what the
// Windows tray loads.
func wrapIcon(png []byte) []byte {
	const headerSize = 6 + 16
	buf := make([]byte, headerSize, headerSize+len(png))
	binary.LittleEndian.PutUint16(buf[0:], 0) // reserved
	binary.LittleEndian.PutUint16(buf[2:], 1) // type: icon
	binary.LittleEndian.PutUint16(buf[4:], 1) // image count

	entry := buf[6:]
	entry[0] = iconSize
	entry[1] = iconSize
	entry[2] = 0 // palette
	entry[3] = 0 // reserved
	binary.LittleEndian.PutUint16(entry[4:], 1)  // planes
	binary.LittleEndian.PutUint16(entry[6:], 32) // bits per pixel
	binary.LittleEndian.PutUint32(entry[8:], uint32(len(png)))
	binary.LittleEndian.PutUint32(entry[12:], headerSize)

	return append(buf, png...)
}
