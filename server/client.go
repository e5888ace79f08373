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
	"encoding/json"

	"github.com/gorilla/websocket"
)

// A Client is one websocket connection and the set of APIDs it has
// subscribed to.  The subscription map is replaced wholesale by
// handleSubscriptions, never mutated in place.
type Client struct {
	server        *Server
	conn          *websocket.Conn
	send          chan []byte
	subscriptions map[int]bool
}

func newClient(server *Server, conn *websocket.Conn) *Client {
	return &Client{
		server:        server,
		conn:          conn,
		send:          make(chan []byte, 256),
		subscriptions: map[int]bool{},
	}
}

// clientRequest is what clients send over the websocket
type clientRequest struct {
	Request string `json:"request"`
	APIDs   []int  `json:"apids"`
	Token   string `json:"token"`
}

// trySend queues a message for the write pump, dropping it when the
// client can't keep up.  Telemetry is a lossy stream by nature; a slow
// client must not stall the decom path.
func (client *Client) trySend(msg []byte) {
	select {
	case client.send <- msg:
	default:
	}
}

func (client *Client) readPump() {
	for {
		conn := client.conn
		if conn == nil {
			return
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			client.server.removeClientChan <- client
			return
		}
		var req clientRequest
		if err := json.Unmarshal(data, &req); err != nil {
			client.server.Log.Debug().Err(err).Msg("bad client request")
			continue
		}
		switch req.Request {
		case "subscribe":
			client.server.subscribeChan <- &subscriptionMsg{client: client, apids: req.APIDs, isAdd: true, token: req.Token}
		case "unsubscribe":
			client.server.subscribeChan <- &subscriptionMsg{client: client, apids: req.APIDs, isAdd: false, token: req.Token}
		case "ping":
			sendJSON(map[string]string{"response": "pong", "token": req.Token}, client)
		}
	}
}

func (client *Client) writePump() {
	for msg := range client.send {
		conn := client.conn
		if conn == nil {
			return
		}
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			client.server.removeClientChan <- client
			return
		}
	}
}
