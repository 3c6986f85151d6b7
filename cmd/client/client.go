// Command client is a small CLI for submitting orders to matchd and
// printing back the confirmation/expiration/error report it receives in
// reply.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strings"

	talarianet "talaria/internal/net"
)

func main() {
	serverAddr := flag.String("server", "127.0.0.1:7700", "address of the matchd server")
	sideStr := flag.String("side", "buy", "order side: 'buy' or 'sell'")
	price := flag.Uint64("price", 100, "limit price, in ticks")
	size := flag.Uint64("size", 10, "order size, in ticks")
	flag.Parse()

	side := matchingBid
	if strings.ToLower(*sideStr) == "sell" {
		side = matchingAsk
	}

	conn, err := net.Dial("tcp", *serverAddr)
	if err != nil {
		log.Fatalf("failed to connect to %s: %v", *serverAddr, err)
	}
	defer conn.Close()

	wire := encodeNewOrder(*price, *size, side)
	if _, err := conn.Write(wire); err != nil {
		log.Fatalf("failed to send order: %v", err)
	}
	fmt.Printf("-> sent %s order: price=%d size=%d\n", strings.ToUpper(*sideStr), *price, *size)

	printReport(conn)
}

// encodeNewOrder mirrors talaria/internal/net.EncodeNewOrder without
// constructing a matching.Order (the client has no reason to import the
// engine package just to validate a wire message it is about to send).
func encodeNewOrder(price, size uint64, side byte) []byte {
	buf := make([]byte, 19)
	binary.BigEndian.PutUint16(buf[0:2], uint16(talarianet.MsgNewOrder))
	binary.BigEndian.PutUint64(buf[2:10], price)
	binary.BigEndian.PutUint64(buf[10:18], size)
	buf[18] = side
	return buf
}

const (
	matchingBid byte = 0
	matchingAsk byte = 1
)

func printReport(conn net.Conn) {
	header := make([]byte, 1)
	if _, err := io.ReadFull(conn, header); err != nil {
		log.Printf("connection closed before a report arrived: %v", err)
		os.Exit(1)
	}

	switch talarianet.ReportType(header[0]) {
	case talarianet.ReportConfirmation:
		body := make([]byte, 8+8+8+1)
		readBody(conn, body)
		orderID := binary.BigEndian.Uint64(body[0:8])
		price := binary.BigEndian.Uint64(body[8:16])
		size := binary.BigEndian.Uint64(body[16:24])
		fmt.Printf("<- confirmed: id=%d price=%d size=%d\n", orderID, price, size)

	case talarianet.ReportExpiration:
		body := make([]byte, 8)
		readBody(conn, body)
		orderID := binary.BigEndian.Uint64(body[0:8])
		fmt.Printf("<- fully consumed on arrival (no resting order, id=%d)\n", orderID)

	case talarianet.ReportError:
		rest, err := io.ReadAll(conn)
		if err != nil {
			log.Printf("error reading error report: %v", err)
			return
		}
		fmt.Printf("<- server error: %s\n", string(rest))

	default:
		fmt.Println("<- unrecognized report type")
	}
}

func readBody(conn net.Conn, buf []byte) {
	if _, err := io.ReadFull(conn, buf); err != nil {
		log.Fatalf("failed to read report body: %v", err)
	}
}
