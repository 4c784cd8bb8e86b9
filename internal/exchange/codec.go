package exchange

import jsoniter "github.com/json-iterator/go"

// json — быстрый кодек для разбора ответов API и кадров WebSocket
var json = jsoniter.ConfigCompatibleWithStandardLibrary
