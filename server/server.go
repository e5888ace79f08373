// Copyright © 2018 NAME HERE <EMAIL ADDRESS>
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/jvanbruegge/AURIS/pus"
)

//
// Server
//

// Server decodes incoming telemetry packets against a parameter
// dictionary and pushes value updates to subscribed websocket clients
type Server struct {
	Config     Config
	Dictionary *pus.ParameterDictionary

	// incoming packets
	PacketChan chan pus.Packet

	Log zerolog.Logger

	// internal state, owned by handleSubscriptions
	clients *map[*websocket.Conn]*Client

	addClientChan    chan *Client
	removeClientChan chan *Client
	subscribeChan    chan *subscriptionMsg

	StopRequest chan os.Signal
}

type subscriptionMsg struct {
	client *Client
	apids  []int
	isAdd  bool
	token  string
}

// ValueUpdate is one decoded parameter value sent to clients
type ValueUpdate struct {
	Packet string `json:"packet"`
	Name   string `json:"name"`
	Value  string `json:"value"`
	Time   string `json:"time"`
}

// Run runs the server until an interrupt or shutdown request arrives
func (server *Server) Run() error {
	if server.Config.Port == 0 {
		server.Config.Port = 8000
	}

	if server.Dictionary == nil && server.Config.Dictionary != "" {
		d, err := pus.LoadDictionary(server.Config.Dictionary)
		if err != nil {
			return err
		}
		server.Dictionary = d
	}
	if server.Dictionary == nil {
		return fmt.Errorf("no parameter dictionary configured")
	}

	server.clients = &map[*websocket.Conn]*Client{}
	if server.PacketChan == nil {
		server.PacketChan = make(chan pus.Packet, 300)
	}
	server.addClientChan = make(chan *Client, 20)
	server.removeClientChan = make(chan *Client, 20)
	server.subscribeChan = make(chan *subscriptionMsg, 20)

	router := server.router()

	go server.handleSubscriptions()
	go server.packetPump()

	addr := fmt.Sprintf("%s:%d", server.Config.Host, server.Config.Port)
	h := &http.Server{Addr: addr, Handler: router}

	// Receive interrupts and shut down gracefully
	server.StopRequest = make(chan os.Signal, 2)
	signal.Notify(server.StopRequest, os.Interrupt)

	go func() {
		server.Log.Info().Str("addr", addr).Msg("listening")
		if err := h.ListenAndServe(); err != http.ErrServerClosed {
			server.Log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-server.StopRequest
	server.Log.Info().Msg("shutting down")
	return h.Shutdown(context.Background())
}

func (server *Server) router() *mux.Router {
	router := mux.NewRouter()

	// REST (order matters)
	router.HandleFunc("/dictionary", func(w http.ResponseWriter, r *http.Request) {
		server.handleWholeDictionary(w, r)
	}).Methods("GET")
	router.HandleFunc("/dictionary/apid/{apid}", func(w http.ResponseWriter, r *http.Request) {
		server.handleDictionaryAPID(w, r)
	}).Methods("GET")

	// WebSocket
	router.HandleFunc("/realtime", func(w http.ResponseWriter, req *http.Request) {
		server.serveWS(w, req)
	})

	// Files
	if server.Config.StaticFiles != "" {
		router.PathPrefix("/").Handler(http.StripPrefix("/", http.FileServer(http.Dir(server.Config.StaticFiles))))
	}
	return router
}

//
// REST handlers
//

func (server *Server) handleWholeDictionary(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(server.Dictionary)
}

func (server *Server) handleDictionaryAPID(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	apid, err := strconv.Atoi(mux.Vars(r)["apid"])
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "BadAPID", "message": "apid must be an integer"})
		return
	}
	defs, ok := server.Dictionary.PacketsByAPID(apid)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "UnknownAPID", "message": "no packets with that apid"})
		return
	}
	json.NewEncoder(w).Encode(defs)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 16384,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func (server *Server) serveWS(w http.ResponseWriter, req *http.Request) {
	conn, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		server.Log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	server.addClientChan <- newClient(server, conn)
}

//
// Handle Subscriptions
//

// All management of subscriptions is centralized here.  The client map is
// treated as immutable and replaced wholesale, so the decom path can read
// it without locking.

func (server *Server) handleSubscriptions() {
	for {
		select {

		case client := <-server.addClientChan:
			newClientMap := make(map[*websocket.Conn]*Client)
			for conn, c := range *server.clients {
				newClientMap[conn] = c
			}
			newClientMap[client.conn] = client
			server.clients = &newClientMap

			go client.writePump()
			go client.readPump()

		case client := <-server.removeClientChan:
			oldConn := client.conn
			client.conn = nil
			if oldConn != nil {
				if err := oldConn.Close(); err != nil {
					server.Log.Debug().Err(err).Msg("closing client connection")
				}
			}
			newClientMap := make(map[*websocket.Conn]*Client)
			for conn, c := range *server.clients {
				if c != client {
					newClientMap[conn] = c
				}
			}
			server.clients = &newClientMap

		case msg := <-server.subscribeChan:
			newSubscriptions := make(map[int]bool, len(msg.client.subscriptions))
			for apid := range msg.client.subscriptions {
				newSubscriptions[apid] = true
			}
			var badAPIDs []int
			for _, apid := range msg.apids {
				if _, ok := server.Dictionary.PacketsByAPID(apid); !ok {
					badAPIDs = append(badAPIDs, apid)
					continue
				}
				if msg.isAdd {
					newSubscriptions[apid] = true
				} else {
					delete(newSubscriptions, apid)
				}
			}
			msg.client.subscriptions = newSubscriptions

			root := map[string]interface{}{"token": msg.token, "status": "success"}
			if msg.isAdd {
				root["response"] = "subscribe"
			} else {
				root["response"] = "unsubscribe"
			}
			if len(badAPIDs) > 0 {
				root["status"] = "error"
				root["bad_apids"] = badAPIDs
			}
			sendJSON(root, msg.client)
		}
	}
}

//
// Realtime packet decom
//

func (server *Server) packetPump() {
	for pkt := range server.PacketChan {
		clients := *server.clients // refetch every packet
		apid := pkt.APID()
		var msgs [][]byte
		for _, client := range clients {
			if !client.subscriptions[apid] {
				continue
			}
			if msgs == nil {
				msgs = server.decomPacket(pkt)
			}
			for _, msg := range msgs {
				client.trySend(msg)
			}
		}
	}
}

// decomPacket extracts every parameter of the packet's definitions and
// renders the updates as JSON messages
func (server *Server) decomPacket(pkt pus.Packet) [][]byte {
	defs, ok := server.Dictionary.PacketsByAPID(pkt.APID())
	if !ok {
		return nil
	}
	stamp := pkt.Time().String()
	var msgs [][]byte
	for _, def := range defs {
		for _, param := range def.Parameters {
			v, err := param.Extract(pkt)
			if err != nil {
				server.Log.Warn().Str("param", param.ID).Err(err).Msg("decom failed")
				continue
			}
			update := ValueUpdate{Packet: def.Name, Name: param.Name, Value: v.String(), Time: stamp}
			msg, err := json.Marshal(update)
			if err != nil {
				continue
			}
			msgs = append(msgs, msg)
		}
	}
	return msgs
}

func sendJSON(root interface{}, client *Client) {
	if msg, err := json.Marshal(root); err == nil {
		client.trySend(msg)
	}
}
