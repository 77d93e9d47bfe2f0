// SPDX-License-Identifier: Apache-2.0
package main

import (
	"flag"
	"log"
	"os"

	"github.com/tliron/commonlog"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	"ssaflow/internal/irlsp"
)

const lsName = "ssaflow"

var version = "0.0.1"

func main() {
	websocketAddr := flag.String("websocket", "", "serve over websocket at this address (e.g. :8080) instead of stdio")
	flag.Parse()

	commonlog.Configure(1, nil)

	h := irlsp.NewHandler()

	handler := protocol.Handler{
		Initialize:                     h.Initialize,
		Initialized:                    h.Initialized,
		Shutdown:                       h.Shutdown,
		TextDocumentDidOpen:            h.TextDocumentDidOpen,
		TextDocumentDidClose:           h.TextDocumentDidClose,
		TextDocumentDidChange:          h.TextDocumentDidChange,
		TextDocumentHover:              h.TextDocumentHover,
		TextDocumentSemanticTokensFull: h.TextDocumentSemanticTokensFull,
	}

	s := server.NewServer(&handler, lsName, false)

	if *websocketAddr != "" {
		log.Printf("Starting %s LSP server on websocket %s...", lsName, *websocketAddr)
		if err := s.RunWebSocket(*websocketAddr); err != nil {
			log.Println("Error starting ssaflow LSP server:", err)
			os.Exit(1)
		}
		return
	}

	log.Printf("Starting %s LSP server on stdio...", lsName)
	if err := s.RunStdio(); err != nil {
		log.Println("Error starting ssaflow LSP server:", err)
		os.Exit(1)
	}
}
