package clienthello

import (
	"bytes"
	"errors"
	"testing"
)

// clientHelloBuilder assembles a minimal ClientHello body (everything
// after the HandshakeType+Length header) with a configurable
// extensions list, mirroring the teacher's buildTLSClientHello helper.
type clientHelloBuilder struct {
	extensions []byte
}

func (b *clientHelloBuilder) addExtension(typ uint16, body []byte) {
	var e bytes.Buffer
	e.Write([]byte{byte(typ >> 8), byte(typ)})
	e.Write([]byte{byte(len(body) >> 8), byte(len(body))})
	e.Write(body)
	b.extensions = append(b.extensions, e.Bytes()...)
}

func serverNameExtensionBody(hostname string) []byte {
	var name bytes.Buffer
	name.WriteByte(0x00) // NameType: host_name
	name.Write([]byte{byte(len(hostname) >> 8), byte(len(hostname))})
	name.WriteString(hostname)

	var list bytes.Buffer
	list.Write([]byte{byte(name.Len() >> 8), byte(name.Len())})
	list.Write(name.Bytes())
	return list.Bytes()
}

func (b *clientHelloBuilder) build() []byte {
	var body bytes.Buffer
	body.Write([]byte{0x03, 0x03})     // ProtocolVersion
	body.Write(make([]byte, 32))       // Random
	body.WriteByte(0x00)               // SessionID (empty)
	body.Write([]byte{0x00, 0x02})     // CipherSuites length
	body.Write([]byte{0x00, 0x0a})     // one cipher suite
	body.WriteByte(0x01)               // CompressionMethods length
	body.WriteByte(0x00)               // null compression
	body.Write([]byte{byte(len(b.extensions) >> 8), byte(len(b.extensions))})
	body.Write(b.extensions)

	var msg bytes.Buffer
	msg.WriteByte(1) // handshake type: client_hello
	msg.Write([]byte{byte(body.Len() >> 16), byte(body.Len() >> 8), byte(body.Len())})
	msg.Write(body.Bytes())
	return msg.Bytes()
}

func TestParseSNIHappyPath(t *testing.T) {
	b := &clientHelloBuilder{}
	b.addExtension(0x000a, []byte{0x00, 0x02, 0x00, 0x1d}) // unrelated extension first
	b.addExtension(0x0000, serverNameExtensionBody("example.com"))

	hostname, err := ParseSNI(bytes.NewReader(b.build()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hostname != "example.com" {
		t.Fatalf("got %q, want %q", hostname, "example.com")
	}
}

func TestParseSNIFirstHostNameWins(t *testing.T) {
	var list bytes.Buffer
	for _, h := range []string{"first.example", "second.example"} {
		list.WriteByte(0x00)
		list.Write([]byte{byte(len(h) >> 8), byte(len(h))})
		list.WriteString(h)
	}
	var ext bytes.Buffer
	ext.Write([]byte{byte(list.Len() >> 8), byte(list.Len())})
	ext.Write(list.Bytes())

	b := &clientHelloBuilder{}
	b.addExtension(0x0000, ext.Bytes())

	hostname, err := ParseSNI(bytes.NewReader(b.build()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hostname != "first.example" {
		t.Fatalf("got %q, want the first host_name entry", hostname)
	}
}

func TestParseSNINoExtensions(t *testing.T) {
	b := &clientHelloBuilder{}
	_, err := ParseSNI(bytes.NewReader(b.build()))
	if !errors.Is(err, ErrNoSniHostName) {
		t.Fatalf("got %v, want ErrNoSniHostName", err)
	}
}

func TestParseSNIOnlySupportedVersionsExtension(t *testing.T) {
	b := &clientHelloBuilder{}
	b.addExtension(0x002b, []byte{0x02, 0x03, 0x04}) // supported_versions, unrelated to SNI

	_, err := ParseSNI(bytes.NewReader(b.build()))
	if !errors.Is(err, ErrNoSniHostName) {
		t.Fatalf("got %v, want ErrNoSniHostName", err)
	}
}

func TestParseSNINotClientHello(t *testing.T) {
	var msg bytes.Buffer
	msg.WriteByte(2) // server_hello, not client_hello
	msg.Write([]byte{0x00, 0x00, 0x00})

	_, err := ParseSNI(bytes.NewReader(msg.Bytes()))
	if !errors.Is(err, ErrNotClientHello) {
		t.Fatalf("got %v, want ErrNotClientHello", err)
	}
}

func TestParseSNIInvalidUTF8HostName(t *testing.T) {
	b := &clientHelloBuilder{}
	var name bytes.Buffer
	name.WriteByte(0x00)
	name.Write([]byte{0x00, 0x02})
	name.Write([]byte{0xff, 0xfe}) // not valid UTF-8

	var list bytes.Buffer
	list.Write([]byte{byte(name.Len() >> 8), byte(name.Len())})
	list.Write(name.Bytes())

	b.addExtension(0x0000, list.Bytes())

	_, err := ParseSNI(bytes.NewReader(b.build()))
	if !errors.Is(err, ErrMalformedClientHello) {
		t.Fatalf("got %v, want ErrMalformedClientHello", err)
	}
}

func TestParseSNITruncatedSessionID(t *testing.T) {
	var msg bytes.Buffer
	body := []byte{0x03, 0x03}
	body = append(body, make([]byte, 32)...)
	body = append(body, 0x10) // claims 16 bytes of session ID, provides none

	msg.WriteByte(1)
	msg.Write([]byte{byte(len(body) >> 16), byte(len(body) >> 8), byte(len(body))})
	msg.Write(body)

	_, err := ParseSNI(bytes.NewReader(msg.Bytes()))
	if !errors.Is(err, ErrMalformedClientHello) {
		t.Fatalf("got %v, want ErrMalformedClientHello", err)
	}
}

func TestParseSNIBoundedByExtensionsLength(t *testing.T) {
	// The extensions length claims fewer bytes than the SNI extension
	// actually needs; the parser must not read past the declared bound
	// even though the underlying stream has more data available.
	b := &clientHelloBuilder{}
	b.addExtension(0x0000, serverNameExtensionBody("example.com"))
	full := b.build()

	// Truncate the extensions-length field down artificially by
	// re-encoding with a too-small extensions length but the same body.
	// Locate the extensions length (last two bytes before b.extensions).
	extStart := len(full) - len(b.extensions) - 2
	truncated := append([]byte{}, full...)
	truncated[extStart] = 0x00
	truncated[extStart+1] = 0x01 // claim only 1 byte of extensions

	_, err := ParseSNI(bytes.NewReader(truncated))
	if !errors.Is(err, ErrMalformedClientHello) && !errors.Is(err, ErrNoSniHostName) {
		t.Fatalf("got %v, want a bounded-read failure (malformed or no SNI found within the truncated bound)", err)
	}
}
