package env

import (
	"log"
	"strconv"

	z "github.com/Oudwins/zog"
	"github.com/Oudwins/zog/zenv"
)

type EnvStruct struct {
	HOME            string `zog:"HOME"`
	PORT            int    `zog:"LEADWIRE_ENV_PORT"`
	OPENAI_API_KEY  string `zog:"OPENAI_API_KEY"`
	OPENAI_BASE_URL string `zog:"OPENAI_BASE_URL"`
	LISTEN_ADDR     string
	LISTEN_PROT     string
	BASE_URL        string
}

var env *EnvStruct

var EnvSchema = z.Struct(z.Shape{
	"HOME":            z.String(),
	"PORT":            z.Int().Default(57911),
	"OPENAI_API_KEY":  z.String().Optional(),
	"OPENAI_BASE_URL": z.String().Optional(),
})

func Get() *EnvStruct {
	if env == nil {
		env = &EnvStruct{}
		errs := EnvSchema.Parse(zenv.NewDataProvider(), env)
		if errs != nil {
			log.Fatal("[Leadwire] Failed to parse environment variables", errs)
		}

		env.LISTEN_PROT = "http://"
		env.LISTEN_ADDR = "localhost:" + strconv.Itoa(env.PORT)
		env.BASE_URL = env.LISTEN_PROT + env.LISTEN_ADDR
	}
	return env
}
