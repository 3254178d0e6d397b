package main

import (
	"encoding/json"
	"flag"
	"log"
	"math/rand"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/vmartynov/vm_go_code_drop/internal/api/rest/modeldto"
)

func randStringBytes(n int) string {
	const letterBytes = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	b := make([]byte, n)
	for i := range b {
		b[i] = letterBytes[rand.Intn(len(letterBytes))]
	}
	return string(b)
}

func main() {
	a := flag.String("a", "http://localhost:8080", "Server address")
	flag.Parse()
	address := *a

	const postFile = "/api/files"
	const getFile = "/api/files/"
	const postRoom = "/api/rooms"
	const getRoom = "/api/rooms/"
	const ping = "/ping"
	const iterations = 20

	client := resty.New()

	// Performing ping loading
	log.Println("Performing ping loading")
	for i := 0; i < iterations; i++ {
		_, err := client.R().Get(address + ping)
		if err != nil {
			log.Fatal(err)
		}
	}
	time.Sleep(1 * time.Second)

	// Performing file upload loading
	log.Println("Performing file upload loading")
	var codes []string
	for i := 0; i < iterations; i++ {
		reqBody, err := json.Marshal(modeldto.RequestFile{
			FileName: "load_" + strconv.Itoa(i) + ".txt",
			Payload:  []byte(randStringBytes(64)),
		})
		if err != nil {
			log.Fatal(err)
		}
		res, err := client.R().SetHeader("Content-Type", "application/json").SetBody(reqBody).Post(address + postFile)
		if err != nil {
			log.Fatal(err)
		}
		if res.StatusCode() == 201 {
			var resData modeldto.ResponseCode
			if err := json.Unmarshal(res.Body(), &resData); err != nil {
				log.Fatal(err)
			}
			codes = append(codes, resData.Code)
		}
	}
	log.Println(codes)
	time.Sleep(1 * time.Second)

	// Performing file download loading, each code is good for exactly one download
	log.Println("Performing file download loading")
	for _, code := range codes {
		res, err := client.R().Get(address + getFile + code)
		if err != nil {
			log.Fatal(err)
		}
		if res.StatusCode() != 200 {
			log.Println("download failed for", code, "with status", res.StatusCode())
		}
	}
	time.Sleep(1 * time.Second)

	// Performing room loading
	log.Println("Performing room loading")
	res, err := client.R().Post(address + postRoom)
	if err != nil {
		log.Fatal(err)
	}
	var room modeldto.ResponseCode
	if err := json.Unmarshal(res.Body(), &room); err != nil {
		log.Fatal(err)
	}
	log.Println("room", room.Code)
	for i := 0; i < iterations; i++ {
		reqBody, err := json.Marshal(modeldto.RequestMessage{Text: randStringBytes(24)})
		if err != nil {
			log.Fatal(err)
		}
		_, err = client.R().SetHeader("Content-Type", "application/json").SetBody(reqBody).Post(address + getRoom + room.Code + "/messages")
		if err != nil {
			log.Fatal(err)
		}
		res, err := client.R().Get(address + getRoom + room.Code)
		if err != nil {
			log.Fatal(err)
		}
		var view modeldto.ResponseRoom
		if err := json.Unmarshal(res.Body(), &view); err != nil {
			log.Fatal(err)
		}
		log.Println("room now holds", len(view.Messages), "messages")
	}
}
