package chat

// welcomeText is shown while the timeline is empty.
const welcomeText = `## Ciao! Come posso aiutarti?

Posso creare pazienti, prendere appuntamenti, consultare statistiche e molto altro!

- 💡 "Crea paziente PICC Mario Rossi"
- 💡 "Quanti PICC ho impiantato a dicembre?"
- 💡 "Dai appuntamento a Rossi per giovedì"

Usa **Alt+1..9** per le azioni rapide, **Alt+I** per leggere i pazienti da una foto.`
